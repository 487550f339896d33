package strategy

import (
	"fmt"

	"VCPScanner/internal/calculator"
	"VCPScanner/internal/model"
)

// Moving averages compared by the trend factor.
const (
	trendFastPeriod = 20
	trendSlowPeriod = 50
)

const factorWeight = 1.0 / 3.0

// Score returns the composite VCP score in [0,1].
func Score(bars []model.OHLCV, params model.ScanParameters) (float64, error) {
	ps, err := Evaluate(bars, params)
	if err != nil {
		return 0, err
	}
	return ps.Total, nil
}

// Evaluate computes the three equally weighted score factors. It does not
// depend on the classification outcome; only arithmetic faults are returned.
func Evaluate(bars []model.OHLCV, params model.ScanParameters) (*model.PatternScore, error) {
	closes := calculator.Closes(bars)

	returns, err := calculator.Returns(closes)
	if err != nil {
		return nil, fmt.Errorf("returns: %w", err)
	}
	volatility, err := calculator.RollingVolatility(returns, params.ContractionPeriod)
	if err != nil {
		return nil, fmt.Errorf("volatility: %w", err)
	}
	profile, err := calculator.RollingAverage(calculator.Volumes(bars), params.ContractionPeriod)
	if err != nil {
		return nil, fmt.Errorf("volume profile: %w", err)
	}

	trend, err := scoreTrend(closes)
	if err != nil {
		return nil, err
	}
	vol, err := scoreVolatility(volatility)
	if err != nil {
		return nil, err
	}
	volume := scoreVolume(profile, params.MinVolume)

	return &model.PatternScore{
		Factors: []model.FactorScore{trend, vol, volume},
		Total:   (trend.RawScore + vol.RawScore + volume.RawScore) / 3,
	}, nil
}

// scoreTrend is strong when price > SMA20 > SMA50, weak otherwise
// (including when there is not enough history for either average).
func scoreTrend(closes []float64) (model.FactorScore, error) {
	strength := model.SignalWeak
	commentary := "no bullish alignment"

	fast, okFast, err := calculator.LastSMA(closes, trendFastPeriod)
	if err != nil {
		return model.FactorScore{}, err
	}
	slow, okSlow, err := calculator.LastSMA(closes, trendSlowPeriod)
	if err != nil {
		return model.FactorScore{}, err
	}
	switch {
	case !okFast || !okSlow:
		commentary = "insufficient history for SMA50"
	case closes[len(closes)-1] > fast && fast > slow:
		strength = model.SignalStrong
		commentary = fmt.Sprintf("price > SMA20 %.2f > SMA50 %.2f", fast, slow)
	}
	return factor("trend", float64(strength), commentary), nil
}

// scoreVolatility measures how far the latest volatility sits below the window maximum.
func scoreVolatility(volatility []float64) (model.FactorScore, error) {
	peak, ok := calculator.Max(volatility)
	if !ok {
		return model.FactorScore{}, fmt.Errorf("%w: empty volatility series", model.ErrArithmeticFault)
	}
	if peak == 0 {
		return model.FactorScore{}, fmt.Errorf("%w: volatility is flat at zero", model.ErrArithmeticFault)
	}
	last := volatility[len(volatility)-1]
	raw := 1 - last/peak
	return factor("volatility", raw, fmt.Sprintf("last %.4f / max %.4f", last, peak)), nil
}

// scoreVolume is strong when the latest average volume clears the floor.
func scoreVolume(profile []float64, minVolume float64) model.FactorScore {
	strength := model.SignalWeak
	commentary := "volume profile unavailable"
	if len(profile) > 0 {
		last := profile[len(profile)-1]
		commentary = fmt.Sprintf("avg volume %.0f vs floor %.0f", last, minVolume)
		if last > minVolume {
			strength = model.SignalStrong
		}
	}
	return factor("volume", float64(strength), commentary)
}

func factor(name string, raw float64, commentary string) model.FactorScore {
	return model.FactorScore{
		Name:       name,
		RawScore:   raw,
		Weight:     factorWeight,
		Weighted:   raw * factorWeight,
		Commentary: commentary,
	}
}
