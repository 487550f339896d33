package collector

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"VCPScanner/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols in Errors fail with that error, symbols in Series return those bars,
// anything else gets ContractingBars around Price.
type MockFetcher struct {
	Price  float64
	Series map[string][]model.OHLCV
	Errors map[string]error
	// Delay is applied before answering and honors context cancellation.
	Delay time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistorical(ctx context.Context, symbol, _, _ string) ([]model.OHLCV, error) {
	symbol = strings.ToUpper(symbol)
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Series[symbol]; ok {
		if len(bars) == 0 {
			return nil, fmt.Errorf("mock %s: %w", symbol, model.ErrNotFound)
		}
		return bars, nil
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	return ContractingBars(price, ContractionDrift, 252), nil
}

// Calls returns how many times symbol was fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[strings.ToUpper(symbol)]
}

// Shape of the generated contraction series.
const (
	ContractionDrift     = -0.00065
	contractionAmplitude = 0.02
	contractionDecay     = 0.995
)

// ContractingBars generates n daily bars starting at start whose returns
// alternate around drift with an amplitude shrinking by contractionDecay each
// bar. Every rolling window of returns is the previous one scaled by
// -contractionDecay, so rolling volatility strictly decreases. Volume decays
// geometrically as well.
func ContractingBars(start, drift float64, n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	origin := time.Now().Truncate(24*time.Hour).AddDate(0, 0, -n)
	price := start
	for i := 0; i < n; i++ {
		if i > 0 {
			k := i - 1
			sign := 1.0
			if k%2 == 1 {
				sign = -1.0
			}
			price *= 1 + drift + sign*contractionAmplitude*math.Pow(contractionDecay, float64(k))
		}
		bars[i] = model.OHLCV{
			Time:   origin.AddDate(0, 0, i),
			Open:   price * 0.999,
			High:   price * 1.005,
			Low:    price * 0.995,
			Close:  price,
			Volume: 2000000 * math.Pow(0.998, float64(i)),
		}
	}
	return bars
}
