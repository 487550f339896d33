package strategy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPScanner/internal/collector"
	"VCPScanner/internal/model"
)

// contracting returns 252 daily bars trending from 180 toward 150 with
// strictly shrinking volatility and decaying volume; the last RSI is near 45.
func contracting() []model.OHLCV {
	return collector.ContractingBars(180, collector.ContractionDrift, 252)
}

// overbought has the same volatility and volume shape but a strong up-drift,
// pushing the last RSI above 70.
func overbought() []model.OHLCV {
	return collector.ContractingBars(180, 0.004, 252)
}

func TestClassify_ContractionMatches(t *testing.T) {
	c, err := Classify(contracting(), model.DefaultParameters())
	require.NoError(t, err)
	assert.True(t, c.Matched)
	assert.Equal(t, model.RejectNone, c.Reason)
	assert.InDelta(t, 45, c.RSI, 5)

	ok, err := IsVCP(contracting(), model.DefaultParameters())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClassify_OverboughtRSIRejected(t *testing.T) {
	c, err := Classify(overbought(), model.DefaultParameters())
	require.NoError(t, err)
	assert.False(t, c.Matched)
	assert.Equal(t, model.RejectRSIOutOfBand, c.Reason)
	assert.Greater(t, c.RSI, 70.0)
}

func TestClassify_ShortSeriesNeverMatches(t *testing.T) {
	bars := contracting()[:10]
	for _, params := range []model.ScanParameters{
		model.DefaultParameters(),
		{MinPrice: 0, MaxPrice: 1e9, ContractionPeriod: 11, VolumeThreshold: 10},
		{MinPrice: 500, MaxPrice: 100, ContractionPeriod: 50},
	} {
		ok, err := IsVCP(bars, params)
		require.NoError(t, err)
		assert.False(t, ok)

		c, err := Classify(bars, params)
		require.NoError(t, err)
		assert.Equal(t, model.RejectInsufficientHistory, c.Reason)
	}

	ok, err := IsVCP(nil, model.DefaultParameters())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClassify_PriceBand(t *testing.T) {
	params := model.DefaultParameters()
	params.MinPrice = 200
	params.MaxPrice = 1000

	c, err := Classify(contracting(), params)
	require.NoError(t, err)
	assert.False(t, c.Matched)
	assert.Equal(t, model.RejectPriceOutOfRange, c.Reason)

	params.MinPrice = 1
	params.MaxPrice = 100
	c, err = Classify(contracting(), params)
	require.NoError(t, err)
	assert.Equal(t, model.RejectPriceOutOfRange, c.Reason)
}

func TestClassify_VolatilityExpansion(t *testing.T) {
	bars := contracting()
	bars[245].Close *= 1.05

	c, err := Classify(bars, model.DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, model.RejectVolatilityExpanding, c.Reason)
}

func TestClassify_VolumeSpike(t *testing.T) {
	bars := contracting()
	bars[len(bars)-2].Volume = 1e10

	c, err := Classify(bars, model.DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, model.RejectVolumeExpanding, c.Reason)
}

func TestClassify_VolumeGrowthInsideTolerance(t *testing.T) {
	bars := contracting()
	// reverse the volume trend: steadily rising, but far below 50% per window
	for i := range bars {
		bars[i].Volume = 1e6 * math.Pow(1.01, float64(i))
	}
	c, err := Classify(bars, model.DefaultParameters())
	require.NoError(t, err)
	assert.True(t, c.Matched)

	params := model.DefaultParameters()
	params.VolumeThreshold = 0
	c, err = Classify(bars, params)
	require.NoError(t, err)
	assert.Equal(t, model.RejectVolumeExpanding, c.Reason)
}

func TestClassify_ZeroPriceIsFault(t *testing.T) {
	bars := contracting()
	bars[100].Close = 0

	_, err := Classify(bars, model.DefaultParameters())
	assert.ErrorIs(t, err, model.ErrArithmeticFault)
}

func TestClassify_InvalidParameters(t *testing.T) {
	params := model.DefaultParameters()
	params.MinPrice = 2000
	_, err := Classify(contracting(), params)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestNonIncreasing(t *testing.T) {
	assert.True(t, NonIncreasing([]float64{0.05, 0.04, 0.03, 0.01}))
	assert.True(t, NonIncreasing([]float64{0.02, 0.02, 0.02}))
	assert.True(t, NonIncreasing(nil))
	assert.False(t, NonIncreasing([]float64{0.05, 0.04, 0.041, 0.01}))
}

func TestGrowthWithin(t *testing.T) {
	tests := []struct {
		values    []float64
		tolerance float64
		want      bool
	}{
		{[]float64{100, 90, 80}, 0, true},
		{[]float64{100, 140, 200}, 0.5, true},
		{[]float64{100, 150}, 0.5, true},
		{[]float64{100, 151}, 0.5, false},
		{[]float64{100, 101}, 0, false},
		{nil, 0.5, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GrowthWithin(tt.values, tt.tolerance), "%v tol=%.2f", tt.values, tt.tolerance)
	}
}

func TestEvaluate_ContractingSeries(t *testing.T) {
	ps, err := Evaluate(contracting(), model.DefaultParameters())
	require.NoError(t, err)
	require.Len(t, ps.Factors, 3)

	trend, vol, volume := ps.Factors[0], ps.Factors[1], ps.Factors[2]
	assert.Equal(t, "trend", trend.Name)
	assert.Equal(t, float64(model.SignalWeak), trend.RawScore, "downtrend has no bullish alignment")
	// 251 returns, 231 volatility windows, each 0.995x the previous one
	assert.InDelta(t, 1-math.Pow(0.995, 230), vol.RawScore, 1e-6)
	assert.Equal(t, float64(model.SignalStrong), volume.RawScore)

	want := (0.5 + (1 - math.Pow(0.995, 230)) + 1) / 3
	assert.InDelta(t, want, ps.Total, 1e-6)

	score, err := Score(contracting(), model.DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, ps.Total, score)
}

func TestEvaluate_BullishTrend(t *testing.T) {
	ps, err := Evaluate(overbought(), model.DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, float64(model.SignalStrong), ps.Factors[0].RawScore)
}

func TestEvaluate_VolumeBelowFloor(t *testing.T) {
	params := model.DefaultParameters()
	params.MinVolume = 1e12
	ps, err := Evaluate(contracting(), params)
	require.NoError(t, err)
	assert.Equal(t, float64(model.SignalWeak), ps.Factors[2].RawScore)
}

func TestEvaluate_Faults(t *testing.T) {
	flat := make([]model.OHLCV, 100)
	for i := range flat {
		flat[i] = model.OHLCV{Close: 50, Volume: 1e6}
	}
	_, err := Evaluate(flat, model.DefaultParameters())
	assert.ErrorIs(t, err, model.ErrArithmeticFault, "flat volatility")

	_, err = Evaluate(contracting()[:10], model.DefaultParameters())
	assert.ErrorIs(t, err, model.ErrArithmeticFault, "no volatility windows")

	withZero := contracting()
	withZero[3].Close = 0
	_, err = Evaluate(withZero, model.DefaultParameters())
	assert.ErrorIs(t, err, model.ErrArithmeticFault, "zero price")
}

func TestScore_AlwaysInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	params := model.DefaultParameters()
	for trial := 0; trial < 200; trial++ {
		n := 30 + rng.Intn(250)
		bars := make([]model.OHLCV, n)
		price := 10 + rng.Float64()*500
		for i := range bars {
			price *= 1 + (rng.Float64()-0.5)*0.1
			bars[i] = model.OHLCV{Close: price, Volume: rng.Float64() * 1e6}
		}
		score, err := Score(bars, params)
		if err != nil {
			assert.ErrorIs(t, err, model.ErrArithmeticFault)
			continue
		}
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}
