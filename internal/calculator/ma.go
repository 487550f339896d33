package calculator

import (
	"fmt"

	"VCPScanner/internal/model"
)

// SMA computes the simple moving average series of prices over period.
// Element i averages prices[i:i+period]; the result has len(prices)-period+1
// elements, or none when there are fewer prices than period.
func SMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: SMA period must be positive, got %d", model.ErrInvalidParameters, period)
	}
	if len(prices) < period {
		return []float64{}, nil
	}
	out := make([]float64, 0, len(prices)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	out = append(out, sum/float64(period))
	for i := period; i < len(prices); i++ {
		sum += prices[i] - prices[i-period]
		out = append(out, sum/float64(period))
	}
	return out, nil
}

// LastSMA returns the most recent SMA value. ok is false when there is not enough data.
func LastSMA(prices []float64, period int) (value float64, ok bool, err error) {
	sma, err := SMA(prices, period)
	if err != nil {
		return 0, false, err
	}
	if len(sma) == 0 {
		return 0, false, nil
	}
	return sma[len(sma)-1], true, nil
}
