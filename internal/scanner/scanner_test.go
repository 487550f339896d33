package scanner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPScanner/internal/collector"
	"VCPScanner/internal/model"
)

func vcpBars() []model.OHLCV {
	return collector.ContractingBars(180, collector.ContractionDrift, 252)
}

// lowVolumeBars matches the pattern but scores lower on the volume factor.
func lowVolumeBars() []model.OHLCV {
	bars := vcpBars()
	for i := range bars {
		bars[i].Volume /= 100
	}
	return bars
}

func TestScan_IsolatesFetchFailures(t *testing.T) {
	fetcher := &collector.MockFetcher{
		Series: map[string][]model.OHLCV{"AAPL": vcpBars()},
		Errors: map[string]error{"BAD": fmt.Errorf("provider: %w", model.ErrDataUnavailable)},
	}
	s := New(fetcher, Options{Workers: 2})

	report, err := s.Run(context.Background(), []string{"AAPL", "BAD"}, model.DefaultParameters())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	last := vcpBars()[251]
	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, model.PatternVCP, res.Pattern)
	assert.Equal(t, 20, res.Contraction)
	assert.InDelta(t, last.Close, res.Price, 1e-9)
	assert.InDelta(t, last.Volume, res.Volume, 1e-6)
	assert.Greater(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 1.0)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "BAD", report.Skipped[0].Symbol)
	assert.Equal(t, model.KindDataUnavailable, report.Skipped[0].Kind)
	assert.Equal(t, 2, report.Scanned)
	assert.NotEmpty(t, report.ID)
}

func TestScan_RanksDescendingAndStable(t *testing.T) {
	fetcher := &collector.MockFetcher{Series: map[string][]model.OHLCV{
		"LOW": lowVolumeBars(),
		"BBB": vcpBars(),
		"AAA": vcpBars(),
	}}
	s := New(fetcher, Options{Workers: 3})

	results, err := s.Scan(context.Background(), []string{"LOW", "BBB", "AAA"}, model.DefaultParameters())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "BBB", results[0].Symbol)
	assert.Equal(t, "AAA", results[1].Symbol)
	assert.Equal(t, "LOW", results[2].Symbol)
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestScan_SkipsNonMatchingAndFaults(t *testing.T) {
	zero := vcpBars()
	zero[10].Close = 0
	fetcher := &collector.MockFetcher{Series: map[string][]model.OHLCV{
		"AAPL":  vcpBars(),
		"SHORT": vcpBars()[:5],
		"ZERO":  zero,
		"HOT":   collector.ContractingBars(180, 0.004, 252),
	}}
	s := New(fetcher, Options{})

	report, err := s.Run(context.Background(), []string{"AAPL", "SHORT", "ZERO", "HOT"}, model.DefaultParameters())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "AAPL", report.Results[0].Symbol)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "ZERO", report.Skipped[0].Symbol)
	assert.Equal(t, model.KindArithmeticFault, report.Skipped[0].Kind)
}

func TestScan_InvalidParametersFailFast(t *testing.T) {
	fetcher := &collector.MockFetcher{}
	s := New(fetcher, Options{})

	for _, params := range []model.ScanParameters{
		{MinPrice: 10, MaxPrice: 5, ContractionPeriod: 20},
		{MinPrice: 1, MaxPrice: 5, ContractionPeriod: 0},
		{MinPrice: 1, MaxPrice: 5, ContractionPeriod: 20, VolumeThreshold: -1},
	} {
		_, err := s.Scan(context.Background(), []string{"AAPL"}, params)
		assert.ErrorIs(t, err, model.ErrInvalidParameters)
	}
	assert.Zero(t, fetcher.Calls("AAPL"))
}

func TestScan_DefaultSymbols(t *testing.T) {
	fetcher := &collector.MockFetcher{}
	s := New(fetcher, Options{Workers: 8})

	report, err := s.Run(context.Background(), nil, model.DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, len(model.DefaultSymbols), report.Scanned)
	assert.Len(t, report.Results, len(model.DefaultSymbols))
	for _, sym := range model.DefaultSymbols {
		assert.Equal(t, 1, fetcher.Calls(sym))
	}
}

func TestScan_PerSymbolTimeout(t *testing.T) {
	fetcher := &collector.MockFetcher{Delay: time.Second}
	s := New(fetcher, Options{Workers: 2, SymbolTimeout: 20 * time.Millisecond})

	start := time.Now()
	report, err := s.Run(context.Background(), []string{"AAPL", "MSFT", "NVDA"}, model.DefaultParameters())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.Empty(t, report.Results)
	require.Len(t, report.Skipped, 3)
	for _, f := range report.Skipped {
		assert.Equal(t, model.KindTimeout, f.Kind)
	}
}

func TestScan_CancelledReturnsNoResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(&collector.MockFetcher{}, Options{})
	report, err := s.Run(ctx, []string{"AAPL", "MSFT"}, model.DefaultParameters())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestAnalyze(t *testing.T) {
	fetcher := &collector.MockFetcher{Series: map[string][]model.OHLCV{
		"AAPL":  vcpBars(),
		"SHORT": vcpBars()[:5],
		"EMPTY": {},
	}}
	s := New(fetcher, Options{})
	ctx := context.Background()

	a, err := s.Analyze(ctx, "aapl", "", "", model.DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, "AAPL", a.Symbol)
	assert.True(t, a.IsVCP)
	assert.Greater(t, a.Score, 0.0)
	require.NotNil(t, a.Breakdown)
	assert.InDelta(t, vcpBars()[251].Close, a.CurrentPrice, 1e-9)

	a, err = s.Analyze(ctx, "SHORT", "", "", model.DefaultParameters())
	require.NoError(t, err)
	assert.False(t, a.IsVCP)
	assert.Equal(t, model.RejectInsufficientHistory, a.Reason)
	assert.Zero(t, a.Score)

	_, err = s.Analyze(ctx, "EMPTY", "", "", model.DefaultParameters())
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.Analyze(ctx, "AAPL", "7y", "", model.DefaultParameters())
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestHistorical(t *testing.T) {
	s := New(&collector.MockFetcher{}, Options{})

	bars, err := s.Historical(context.Background(), "MSFT", "1y", "1d")
	require.NoError(t, err)
	assert.Len(t, bars, 252)

	_, err = s.Historical(context.Background(), " ", "1y", "1d")
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestRank(t *testing.T) {
	results := []model.ScanResult{
		{Symbol: "A", Score: 0.5},
		{Symbol: "B", Score: 0.9},
		{Symbol: "C", Score: 0.5},
		{Symbol: "D", Score: 0.7},
	}
	Rank(results)
	var order []string
	for _, r := range results {
		order = append(order, r.Symbol)
	}
	assert.Equal(t, []string{"B", "D", "A", "C"}, order)
}

func TestNormalizeSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT"}, NormalizeSymbols([]string{" aapl", "", "MSFT", "AAPL "}))
	assert.Empty(t, NormalizeSymbols(nil))
}
