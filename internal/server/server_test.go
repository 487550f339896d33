package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPScanner/internal/collector"
	"VCPScanner/internal/model"
	"VCPScanner/internal/scanner"
)

func newTestServer(t *testing.T) (*Server, *collector.MockFetcher) {
	t.Helper()
	fetcher := &collector.MockFetcher{
		Price:  100,
		Series: map[string][]model.OHLCV{"EMPTY": {}},
		Errors: map[string]error{"DOWN": fmt.Errorf("upstream: %w", model.ErrDataUnavailable)},
	}
	s := New(Config{
		AllowedOrigin: "http://localhost:3000",
		Defaults:      model.DefaultParameters(),
	}, scanner.New(fetcher, scanner.Options{Workers: 2}), func() map[string]string {
		return map[string]string{"breaker": "closed"}
	})
	return s, fetcher
}

func do(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestScanEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/vcp/scan", []byte(`{"symbols":["aapl","DOWN"]}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var results []model.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Equal(t, model.PatternVCP, results[0].Pattern)
}

func TestScanEndpoint_EmptyBodyUsesDefaults(t *testing.T) {
	s, fetcher := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/vcp/scan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, sym := range model.DefaultSymbols {
		assert.Equal(t, 1, fetcher.Calls(sym), sym)
	}
}

func TestScanEndpoint_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"symbols":`},
		{"string number", `{"minPrice":"five"}`},
		{"fractional period", `{"contractionPeriod":2.5}`},
		{"min above max", `{"minPrice":50,"maxPrice":10}`},
		{"zero period", `{"contractionPeriod":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fetcher := newTestServer(t)
			rec := do(t, s, http.MethodPost, "/api/vcp/scan", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Zero(t, fetcher.Calls("AAPL"))
		})
	}
}

func TestHistoricalEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/vcp/historical/msft?period=6mo&interval=1d", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var bars []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bars))
	require.Len(t, bars, 252)
	for _, field := range []string{"date", "open", "high", "low", "close", "volume"} {
		assert.Contains(t, bars[0], field)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/vcp/analyze/NVDA?minVolume=1000", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var a model.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "NVDA", a.Symbol)
	assert.True(t, a.IsVCP)
	assert.Greater(t, a.Score, 0.0)
	assert.Greater(t, a.CurrentPrice, 0.0)
	require.NotNil(t, a.Breakdown)
	assert.Len(t, a.Breakdown.Factors, 3)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		path string
		want int
	}{
		{"bad number", "/api/vcp/analyze/AAPL?minPrice=abc", http.StatusBadRequest},
		{"bad period", "/api/vcp/historical/AAPL?period=4y", http.StatusBadRequest},
		{"not found", "/api/vcp/historical/EMPTY", http.StatusNotFound},
		{"upstream down", "/api/vcp/analyze/DOWN", http.StatusBadGateway},
		{"unknown route", "/api/vcp/nothing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			rec := do(t, s, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(fmt.Errorf("x: %w", model.ErrArithmeticFault)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("boom")))
}

func TestWelcomeHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")

	rec = do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "closed", health["breaker"])

	do(t, s, http.MethodPost, "/api/vcp/scan", []byte(`{"symbols":["AAPL"]}`))
	rec = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vcp_scans_total")
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/vcp/scan", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
