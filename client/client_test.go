package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reportdto "optometry_report/internal/api/report/dto"
	"optometry_report/internal/common"
)

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    status,
		"message": "ok",
		"data":    data,
		"status":  "success",
	})
}

func echoCumulative(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeData(w, http.StatusOK, reportdto.CumulativeResponse{
		Period:      reportdto.Period{Month: q.Get("month"), Year: q.Get("year")},
		Institution: q.Get("institution"),
		Vector:      make([]float64, 84),
		Tier:        "authoritative",
	})
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithRetryCount(0), WithTimeout(5*time.Second), WithAccessKey("k"))
}

func TestCumulative_Success(t *testing.T) {
	var seen http.Header
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		path = r.URL.Path
		echoCumulative(w, r)
	})

	res, err := c.Cumulative(context.Background(), "Kozhikode", "CHC Narikkuni", "jun", "2025")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/reports/cumulative", path)
	assert.Equal(t, reportdto.Period{Month: "June", Year: "2025"}, res.Period)
	assert.Equal(t, "CHC Narikkuni", res.Institution)
	assert.Len(t, res.Vector, 84)
	assert.Equal(t, "k", seen.Get("X-Access-Key"))
	_, err = uuid.Parse(seen.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestCumulative_InvalidPeriodNeverSent(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		echoCumulative(w, r)
	})

	_, err := c.Cumulative(context.Background(), "Kozhikode", "CHC Narikkuni", "Smarch", "2025")
	assert.ErrorIs(t, err, common.ErrInvalidPeriod)
	_, err = c.Cumulative(context.Background(), "Kozhikode", "CHC Narikkuni", "June", "25")
	assert.ErrorIs(t, err, common.ErrInvalidPeriod)
	assert.False(t, called)
}

func TestCumulative_PeriodMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, reportdto.CumulativeResponse{
			Period: reportdto.Period{Month: "May", Year: "2025"},
		})
	})

	_, err := c.Cumulative(context.Background(), "Kozhikode", "CHC Narikkuni", "June", "2025")
	assert.ErrorIs(t, err, ErrPeriodMismatch)
}

func TestDistrictMatrix_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    "VAL_003",
			"message": "invalid period",
			"details": "district is required",
			"status":  "error",
		})
	})

	_, err := c.DistrictMatrix(context.Background(), "Kozhikode", "June", "2025")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VAL_003", apiErr.Code)
	assert.Equal(t, "invalid period", apiErr.Message)
	assert.Equal(t, "district is required", apiErr.Details)
}

func TestFiscalWindow_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reports/fiscal-window", r.URL.Path)
		writeData(w, http.StatusOK, reportdto.FiscalWindowResponse{
			Period:     reportdto.Period{Month: "May", Year: "2026"},
			FiscalYear: "2025-26",
			Window: []reportdto.Period{
				{Month: "April", Year: "2025"},
			},
		})
	})

	res, err := c.FiscalWindow(context.Background(), "May", "2026")
	require.NoError(t, err)
	assert.Equal(t, "2025-26", res.FiscalYear)
}

func TestLatestLoader_NewerRequestWins(t *testing.T) {
	started := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("month") == "June" {
			close(started)
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		echoCumulative(w, r)
	})
	l := NewLatestLoader(c)

	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Cumulative(context.Background(), "Kozhikode", "CHC Narikkuni", "June", "2025")
		firstErr <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the server")
	}

	res, err := l.Cumulative(context.Background(), "Kozhikode", "CHC Narikkuni", "July", "2025")
	require.NoError(t, err)
	assert.Equal(t, "July", res.Period.Month)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrStaleRequest)
	case <-time.After(5 * time.Second):
		t.Fatal("first request was not cancelled")
	}
	assert.Equal(t, uint64(2), l.Generation())
}

func TestLatestLoader_Cancel(t *testing.T) {
	started := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})
	l := NewLatestLoader(c)

	done := make(chan error, 1)
	go func() {
		_, err := l.DistrictMatrix(context.Background(), "Kozhikode", "June", "2025")
		done <- err
	}()
	<-started
	l.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStaleRequest)
	case <-time.After(5 * time.Second):
		t.Fatal("request was not cancelled")
	}
}
