package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPScanner/internal/model"
)

func TestReturns(t *testing.T) {
	r, err := Returns([]float64{100, 110, 99})
	require.NoError(t, err)
	require.Len(t, r, 2)
	assert.InDelta(t, 0.10, r[0], 1e-12)
	assert.InDelta(t, -0.10, r[1], 1e-12)
}

func TestReturns_ZeroPriceIsArithmeticFault(t *testing.T) {
	for _, prices := range [][]float64{
		{0, 10, 11},
		{10, 0, 11},
		{10, 11, 0},
	} {
		r, err := Returns(prices)
		assert.ErrorIs(t, err, model.ErrArithmeticFault, "prices %v", prices)
		assert.Nil(t, r)
	}
}

func TestReturns_ShortInput(t *testing.T) {
	r, err := Returns([]float64{42})
	require.NoError(t, err)
	assert.Empty(t, r)
}

func TestRollingVolatility_ConstantReturnsAreZero(t *testing.T) {
	returns := make([]float64, 30)
	for i := range returns {
		returns[i] = 0.01
	}
	vol, err := RollingVolatility(returns, 5)
	require.NoError(t, err)
	require.Len(t, vol, 25)
	for i, v := range vol {
		assert.InDelta(t, 0, v, 1e-15, "index %d", i)
	}
}

func TestRollingVolatility_PopulationStdDev(t *testing.T) {
	// window {1,3} -> mean 2, variance 1
	vol, err := RollingVolatility([]float64{1, 3, 5}, 2)
	require.NoError(t, err)
	require.Len(t, vol, 1)
	assert.InDelta(t, 1.0, vol[0], 1e-12)
}

func TestRollingVolatility_EdgeLengths(t *testing.T) {
	vol, err := RollingVolatility([]float64{1, 2}, 3)
	require.NoError(t, err)
	assert.Empty(t, vol)

	vol, err = RollingVolatility([]float64{1, 2, 3}, 3)
	require.NoError(t, err)
	assert.Empty(t, vol)

	_, err = RollingVolatility([]float64{1, 2, 3}, 0)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestRollingAverage(t *testing.T) {
	avg, err := RollingAverage([]float64{1, 2, 3, 4, 5}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, avg)
}

func TestTail(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	assert.Equal(t, []float64{3, 4}, Tail(v, 2))
	assert.Equal(t, v, Tail(v, 10))
	assert.Empty(t, Tail(nil, 3))
}

func TestMax(t *testing.T) {
	m, ok := Max([]float64{0.2, 0.9, 0.4})
	assert.True(t, ok)
	assert.Equal(t, 0.9, m)

	_, ok = Max(nil)
	assert.False(t, ok)
}

func TestSMA(t *testing.T) {
	sma, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	require.Len(t, sma, 3)
	assert.InDelta(t, 2, sma[0], 1e-12)
	assert.InDelta(t, 3, sma[1], 1e-12)
	assert.InDelta(t, 4, sma[2], 1e-12)

	sma, err = SMA([]float64{1, 2}, 3)
	require.NoError(t, err)
	assert.Empty(t, sma)

	_, err = SMA([]float64{1, 2}, 0)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestLastSMA(t *testing.T) {
	v, ok, err := LastSMA([]float64{2, 4, 6, 8}, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 7, v, 1e-12)

	_, ok, err = LastSMA([]float64{2}, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRSI_Length(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + math.Sin(float64(i))
	}
	rsi, err := RSI(prices, DefaultRSIPeriod)
	require.NoError(t, err)
	assert.Len(t, rsi, 40-DefaultRSIPeriod)
	for _, v := range rsi {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	rsi, err := RSI(make([]float64, 14), 14)
	require.NoError(t, err)
	assert.Empty(t, rsi)
}

func TestRSI_Extremes(t *testing.T) {
	up := make([]float64, 20)
	down := make([]float64, 20)
	for i := range up {
		up[i] = float64(100 + i)
		down[i] = float64(100 - i)
	}
	rsi, err := RSI(up, 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi[len(rsi)-1])

	rsi, err = RSI(down, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0, rsi[len(rsi)-1], 1e-12)
}

func TestRSI_Balanced(t *testing.T) {
	// alternating +1/-1 gives equal average gain and loss over an even period
	prices := []float64{100}
	for i := 0; i < 14; i++ {
		if i%2 == 0 {
			prices = append(prices, prices[len(prices)-1]+1)
		} else {
			prices = append(prices, prices[len(prices)-1]-1)
		}
	}
	rsi, err := RSI(prices, 14)
	require.NoError(t, err)
	require.Len(t, rsi, 1)
	assert.InDelta(t, 50, rsi[0], 1e-9)
}

func TestCloses_Volumes(t *testing.T) {
	bars := []model.OHLCV{{Close: 1, Volume: 10}, {Close: 2, Volume: 20}}
	assert.Equal(t, []float64{1, 2}, Closes(bars))
	assert.Equal(t, []float64{10, 20}, Volumes(bars))
}
