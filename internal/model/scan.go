package model

import (
	"fmt"
	"math"
	"time"
)

// PatternVCP is the label attached to every scan result.
const PatternVCP = "VCP"

// Default request values.
const (
	DefaultPeriod   = "1y"
	DefaultInterval = "1d"
)

// DefaultSymbols is the reference list scanned when a request names no symbols.
var DefaultSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA", "JPM", "V", "WMT",
	"JNJ", "PG", "MA", "UNH", "HD", "BAC", "XOM", "DIS", "NFLX", "PYPL",
}

var validPeriods = map[string]bool{
	"1mo": true, "3mo": true, "6mo": true, "1y": true, "2y": true,
	"5y": true, "10y": true, "ytd": true, "max": true,
}

var validIntervals = map[string]bool{"1d": true, "1wk": true, "1mo": true}

// ScanParameters drives one classification/scoring call.
type ScanParameters struct {
	MinVolume         float64 `json:"minVolume" yaml:"min_volume"`
	MinPrice          float64 `json:"minPrice" yaml:"min_price"`
	MaxPrice          float64 `json:"maxPrice" yaml:"max_price"`
	ContractionPeriod int     `json:"contractionPeriod" yaml:"contraction_period"`
	VolumeThreshold   float64 `json:"volumeThreshold" yaml:"volume_threshold"`
}

// DefaultParameters returns the parameter set used when a request omits a field.
func DefaultParameters() ScanParameters {
	return ScanParameters{
		MinVolume:         100000,
		MinPrice:          5,
		MaxPrice:          1000,
		ContractionPeriod: 20,
		VolumeThreshold:   0.5,
	}
}

// Validate rejects parameter sets no scan can run with.
func (p ScanParameters) Validate() error {
	for name, v := range map[string]float64{
		"minVolume":       p.MinVolume,
		"minPrice":        p.MinPrice,
		"maxPrice":        p.MaxPrice,
		"volumeThreshold": p.VolumeThreshold,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidParameters, name)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s must be non-negative", ErrInvalidParameters, name)
		}
	}
	if p.MinPrice > p.MaxPrice {
		return fmt.Errorf("%w: minPrice %.2f exceeds maxPrice %.2f", ErrInvalidParameters, p.MinPrice, p.MaxPrice)
	}
	if p.ContractionPeriod <= 0 {
		return fmt.Errorf("%w: contractionPeriod must be positive, got %d", ErrInvalidParameters, p.ContractionPeriod)
	}
	return nil
}

// ValidateRange checks a provider period/interval pair.
func ValidateRange(period, interval string) error {
	if !validPeriods[period] {
		return fmt.Errorf("%w: unsupported period %q", ErrInvalidParameters, period)
	}
	if !validIntervals[interval] {
		return fmt.Errorf("%w: unsupported interval %q", ErrInvalidParameters, interval)
	}
	return nil
}

// ScanResult is one ranked VCP candidate.
type ScanResult struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	Volume      float64 `json:"volume"`
	Contraction int     `json:"contraction"`
	Pattern     string  `json:"pattern"`
	Score       float64 `json:"score"`
}

// Analysis is the single-symbol view combining classification and scoring.
type Analysis struct {
	Symbol        string        `json:"symbol"`
	IsVCP         bool          `json:"isVCP"`
	Score         float64       `json:"score"`
	CurrentPrice  float64       `json:"currentPrice"`
	CurrentVolume float64       `json:"currentVolume"`
	Reason        RejectReason  `json:"reason,omitempty"`
	RSI           float64       `json:"rsi"`
	Breakdown     *PatternScore `json:"breakdown,omitempty"`
}

// SymbolFailure records a symbol skipped during a scan.
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// ScanReport is the full outcome of one orchestration call.
type ScanReport struct {
	ID        string          `json:"id"`
	Results   []ScanResult    `json:"results"`
	Skipped   []SymbolFailure `json:"skipped"`
	Scanned   int             `json:"scanned"`
	StartedAt time.Time       `json:"startedAt"`
	Duration  time.Duration   `json:"duration"`
}
