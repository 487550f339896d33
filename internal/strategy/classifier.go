package strategy

import (
	"fmt"

	"VCPScanner/internal/calculator"
	"VCPScanner/internal/model"
)

// RSI band a VCP candidate must sit strictly inside.
const (
	rsiLowerBound = 30.0
	rsiUpperBound = 70.0
)

// IsVCP reports whether bars exhibit a volatility contraction pattern.
func IsVCP(bars []model.OHLCV, params model.ScanParameters) (bool, error) {
	c, err := Classify(bars, params)
	if err != nil {
		return false, err
	}
	return c.Matched, nil
}

// Classify applies the VCP decision rule and reports which check rejected the
// series. Checks run in order and stop at the first failure:
//  1. at least ContractionPeriod bars
//  2. current close inside [MinPrice, MaxPrice]
//  3. trailing rolling volatility is non-increasing
//  4. trailing volume profile grows by at most VolumeThreshold per step
//  5. last RSI(14) strictly inside (30, 70)
//
// Errors are reserved for arithmetic faults and invalid parameters.
func Classify(bars []model.OHLCV, params model.ScanParameters) (model.Classification, error) {
	if len(bars) == 0 || len(bars) < params.ContractionPeriod {
		return reject(model.RejectInsufficientHistory), nil
	}
	if err := params.Validate(); err != nil {
		return model.Classification{}, err
	}

	closes := calculator.Closes(bars)
	current := closes[len(closes)-1]
	if current < params.MinPrice || current > params.MaxPrice {
		return reject(model.RejectPriceOutOfRange), nil
	}

	returns, err := calculator.Returns(closes)
	if err != nil {
		return model.Classification{}, fmt.Errorf("returns: %w", err)
	}
	volatility, err := calculator.RollingVolatility(returns, params.ContractionPeriod)
	if err != nil {
		return model.Classification{}, fmt.Errorf("volatility: %w", err)
	}
	if !NonIncreasing(calculator.Tail(volatility, params.ContractionPeriod)) {
		return reject(model.RejectVolatilityExpanding), nil
	}

	profile, err := calculator.RollingAverage(calculator.Volumes(bars), params.ContractionPeriod)
	if err != nil {
		return model.Classification{}, fmt.Errorf("volume profile: %w", err)
	}
	if !GrowthWithin(calculator.Tail(profile, params.ContractionPeriod), params.VolumeThreshold) {
		return reject(model.RejectVolumeExpanding), nil
	}

	rsi, err := calculator.RSI(closes, calculator.DefaultRSIPeriod)
	if err != nil {
		return model.Classification{}, fmt.Errorf("rsi: %w", err)
	}
	if len(rsi) == 0 {
		return reject(model.RejectRSIOutOfBand), nil
	}
	last := rsi[len(rsi)-1]
	if last <= rsiLowerBound || last >= rsiUpperBound {
		c := reject(model.RejectRSIOutOfBand)
		c.RSI = last
		return c, nil
	}

	return model.Classification{Matched: true, RSI: last}, nil
}

// NonIncreasing reports whether v[i] <= v[i-1] for every i > 0.
func NonIncreasing(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] > values[i-1] {
			return false
		}
	}
	return true
}

// GrowthWithin reports whether v[i] <= v[i-1]*(1+tolerance) for every i > 0.
// Volume may grow between windows, just not by more than the tolerance.
func GrowthWithin(values []float64, tolerance float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] > values[i-1]*(1+tolerance) {
			return false
		}
	}
	return true
}

func reject(reason model.RejectReason) model.Classification {
	return model.Classification{Reason: reason}
}
