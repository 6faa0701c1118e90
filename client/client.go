// Package client is a Go client for the report API. Every response is checked
// against the period that was asked for.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	reportdto "optometry_report/internal/api/report/dto"
	"optometry_report/internal/fiscal"
)

// ErrPeriodMismatch means the server answered for a different period than the
// one requested. The answer must not be shown for the current selection.
var ErrPeriodMismatch = errors.New("response period does not match the requested period")

// APIError is an error envelope returned by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    interface{}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("report api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type envelope[T any] struct {
	Code    interface{} `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Data    T           `json:"data"`
	Details interface{} `json:"details"`
}

// Client calls the report API.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*resty.Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetryCount sets how often a failed connection is retried.
func WithRetryCount(n int) Option {
	return func(c *resty.Client) { c.SetRetryCount(n) }
}

// WithAccessKey sends the shared access key on every request.
func WithAccessKey(key string) Option {
	return func(c *resty.Client) { c.SetHeader("X-Access-Key", key) }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(http)
	}
	return &Client{http: http}
}

// Cumulative fetches one institution's fiscal-year-to-date total through
// (month, year).
func (c *Client) Cumulative(ctx context.Context, district, institution, month, year string) (*reportdto.CumulativeResponse, error) {
	want, err := fiscal.ParsePeriod(month, year)
	if err != nil {
		return nil, err
	}
	res, err := get[reportdto.CumulativeResponse](ctx, c, "/api/v1/reports/cumulative", map[string]string{
		"district":    district,
		"institution": institution,
		"month":       want.Month.String(),
		"year":        want.YearString(),
	})
	if err != nil {
		return nil, err
	}
	if res.Period != reportdto.NewPeriod(want) {
		return nil, fmt.Errorf("%w: asked %s, got %s %s", ErrPeriodMismatch, want, res.Period.Month, res.Period.Year)
	}
	return &res, nil
}

// DistrictMatrix fetches the district roll-up through (month, year).
func (c *Client) DistrictMatrix(ctx context.Context, district, month, year string) (*reportdto.DistrictMatrixResponse, error) {
	want, err := fiscal.ParsePeriod(month, year)
	if err != nil {
		return nil, err
	}
	res, err := get[reportdto.DistrictMatrixResponse](ctx, c, "/api/v1/reports/district-matrix", map[string]string{
		"district": district,
		"month":    want.Month.String(),
		"year":     want.YearString(),
	})
	if err != nil {
		return nil, err
	}
	if res.Period != reportdto.NewPeriod(want) {
		return nil, fmt.Errorf("%w: asked %s, got %s %s", ErrPeriodMismatch, want, res.Period.Month, res.Period.Year)
	}
	return &res, nil
}

// FiscalWindow fetches the ordered periods a cumulative through (month, year)
// sums.
func (c *Client) FiscalWindow(ctx context.Context, month, year string) (*reportdto.FiscalWindowResponse, error) {
	want, err := fiscal.ParsePeriod(month, year)
	if err != nil {
		return nil, err
	}
	res, err := get[reportdto.FiscalWindowResponse](ctx, c, "/api/v1/reports/fiscal-window", map[string]string{
		"month": want.Month.String(),
		"year":  want.YearString(),
	})
	if err != nil {
		return nil, err
	}
	if res.Period != reportdto.NewPeriod(want) {
		return nil, fmt.Errorf("%w: asked %s, got %s %s", ErrPeriodMismatch, want, res.Period.Month, res.Period.Year)
	}
	return &res, nil
}

func get[T any](ctx context.Context, c *Client, path string, params map[string]string) (T, error) {
	var ok envelope[T]
	var failed envelope[interface{}]
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetQueryParams(params).
		SetResult(&ok).
		SetError(&failed).
		Get(path)
	if err != nil {
		var zero T
		return zero, err
	}
	if resp.IsError() {
		var zero T
		return zero, &APIError{
			StatusCode: resp.StatusCode(),
			Code:       fmt.Sprint(failed.Code),
			Message:    failed.Message,
			Details:    failed.Details,
		}
	}
	return ok.Data, nil
}
