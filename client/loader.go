package client

import (
	"context"
	"errors"
	"sync"

	reportdto "optometry_report/internal/api/report/dto"
)

// ErrStaleRequest means a newer request was issued before this one finished.
// Its result has been discarded.
var ErrStaleRequest = errors.New("superseded by a newer request")

// LatestLoader serializes selection changes: each new request cancels the one
// in flight, and only the most recently issued request may deliver a result.
type LatestLoader struct {
	client *Client

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewLatestLoader wraps c.
func NewLatestLoader(c *Client) *LatestLoader {
	return &LatestLoader{client: c}
}

// Generation returns the number of requests issued so far.
func (l *LatestLoader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

func (l *LatestLoader) begin(parent context.Context) (context.Context, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	l.gen++
	l.cancel = cancel
	return ctx, l.gen
}

// finish reports whether gen is still the newest request.
func (l *LatestLoader) finish(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	return true
}

// Cancel aborts the request in flight, if any.
func (l *LatestLoader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Cumulative loads one institution's cumulative for the new selection.
func (l *LatestLoader) Cumulative(ctx context.Context, district, institution, month, year string) (*reportdto.CumulativeResponse, error) {
	ctx, gen := l.begin(ctx)
	res, err := l.client.Cumulative(ctx, district, institution, month, year)
	if !l.finish(gen) {
		return nil, ErrStaleRequest
	}
	return res, err
}

// DistrictMatrix loads the district roll-up for the new selection.
func (l *LatestLoader) DistrictMatrix(ctx context.Context, district, month, year string) (*reportdto.DistrictMatrixResponse, error) {
	ctx, gen := l.begin(ctx)
	res, err := l.client.DistrictMatrix(ctx, district, month, year)
	if !l.finish(gen) {
		return nil, ErrStaleRequest
	}
	return res, err
}
