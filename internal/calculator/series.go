package calculator

import (
	"fmt"
	"math"

	"VCPScanner/internal/model"
)

// Returns computes simple fractional returns r[i] = (p[i+1]-p[i])/p[i].
// The result has len(prices)-1 elements. A zero price anywhere in the input is
// an ErrArithmeticFault.
func Returns(prices []float64) ([]float64, error) {
	for i, p := range prices {
		if p == 0 {
			return nil, fmt.Errorf("%w: zero price at index %d", model.ErrArithmeticFault, i)
		}
	}
	if len(prices) < 2 {
		return []float64{}, nil
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return returns, nil
}

// RollingVolatility computes the population standard deviation of each window
// values[i-period:i] for i in [period, len(values)). The result has
// len(values)-period elements, or none when values is shorter than period.
func RollingVolatility(values []float64, period int) ([]float64, error) {
	return rolling(values, period, func(window []float64) float64 {
		mean := average(window)
		variance := 0.0
		for _, v := range window {
			d := v - mean
			variance += d * d
		}
		return math.Sqrt(variance / float64(len(window)))
	})
}

// RollingAverage computes the arithmetic mean over the same windows as RollingVolatility.
func RollingAverage(values []float64, period int) ([]float64, error) {
	return rolling(values, period, average)
}

func rolling(values []float64, period int, fn func([]float64) float64) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: period must be positive, got %d", model.ErrInvalidParameters, period)
	}
	if len(values) <= period {
		return []float64{}, nil
	}
	out := make([]float64, 0, len(values)-period)
	for i := period; i < len(values); i++ {
		out = append(out, fn(values[i-period:i]))
	}
	return out, nil
}

func average(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Tail returns the trailing n elements of values, or all of them when shorter.
func Tail(values []float64, n int) []float64 {
	if n < 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// Max returns the largest element. ok is false for an empty slice.
func Max(values []float64) (peak float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	peak = values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	return peak, true
}

// Closes extracts closing prices.
func Closes(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts traded volumes.
func Volumes(bars []model.OHLCV) []float64 {
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}
	return volumes
}
