package risk

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candles(ranges ...[2]float64) []market.Candle {
	out := make([]market.Candle, len(ranges))
	for i, r := range ranges {
		out[i] = market.Candle{High: r[0], Low: r[1], Open: r[1], Close: r[0]}
	}
	return out
}

func TestVolatility(t *testing.T) {
	t.Parallel()

	cs := candles([2]float64{1.2000, 1.1900}, [2]float64{1.1008, 1.1002}, [2]float64{1.1010, 1.1004}, [2]float64{1.1009, 1.1000})
	vol, err := Volatility(cs, 3)
	require.NoError(t, err)
	// Only the trailing three candles count.
	assert.InDelta(t, 0.0010, vol, 1e-12)

	_, err = Volatility(cs[:2], 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestDistancesPolicies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   Policy
		stopPips float64
		takePips float64
	}{
		{"current", CurrentPolicy, 10, 12},
		{"legacy", LegacyPolicy, 15, 30},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := NewDistances(0.0010, 0.0001, tt.policy, 0)
			require.NoError(t, err)
			assert.InDelta(t, 10, d.VolatilityPips, 1e-9)
			assert.InDelta(t, tt.stopPips, d.StopPips, 1e-9)
			assert.InDelta(t, tt.takePips, d.TakePips, 1e-9)
		})
	}
}

func TestDistancesMinStopWidens(t *testing.T) {
	t.Parallel()

	d, err := NewDistances(0.0002, 0.0001, CurrentPolicy, 0.0005)
	require.NoError(t, err)
	assert.InDelta(t, 5, d.StopPips, 1e-9)
	assert.InDelta(t, 5, d.TakePips, 1e-9)
}

func TestDistancesRejectFlatRange(t *testing.T) {
	t.Parallel()

	_, err := NewDistances(0, 0.0001, CurrentPolicy, 0)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = NewDistances(0.001, 0, CurrentPolicy, 0)
	assert.Error(t, err)
}

func TestPlanOrderingInvariant(t *testing.T) {
	t.Parallel()

	for _, pip := range []float64{0.0001, 0.01} {
		for _, vol := range []float64{0.00001, 0.0007, 0.013, 1.7} {
			for _, pol := range []Policy{CurrentPolicy, LegacyPolicy, {Multiplier: 0.3, RewardRatio: 5}} {
				d, err := NewDistances(vol, pip, pol, 0)
				require.NoError(t, err)
				for _, dir := range []market.Direction{market.Buy, market.Sell} {
					name := fmt.Sprintf("%s pip=%v vol=%v m=%v", dir, pip, vol, pol.Multiplier)
					p, err := d.PlanAt(dir, 150.123)
					require.NoError(t, err)
					assert.True(t, p.Valid(), name)
				}
			}
		}
	}
}

func TestPlanAtRejectsNoDirection(t *testing.T) {
	t.Parallel()

	d, err := NewDistances(0.001, 0.0001, CurrentPolicy, 0)
	require.NoError(t, err)
	_, err = d.PlanAt(market.None, 1.1)
	assert.Error(t, err)
}

func TestPlanRR(t *testing.T) {
	t.Parallel()

	p := Plan{Direction: market.Buy, Entry: 1.1000, StopLoss: 1.0990, TakeProfit: 1.1012}
	assert.InDelta(t, 1.2, p.RR(), 1e-9)
	assert.Equal(t, 0.0, RR(1, 1, 2))
}

func newMarket(t *testing.T) *sim.Engine {
	t.Helper()
	e := sim.NewEngine()
	e.SetCandles("EURUSD", market.M1, candles(
		[2]float64{1.1008, 1.1002},
		[2]float64{1.1010, 1.1004},
		[2]float64{1.1009, 1.1000},
	))
	return e
}

func TestCalculatorPlanUsesLiveQuote(t *testing.T) {
	t.Parallel()

	e := newMarket(t)
	e.UpdatePrice(market.Tick{Instrument: "EURUSD", Bid: 1.10000, Ask: 1.10010, Time: time.Now()})

	c := NewCalculator(e, LegacyPolicy)

	buy, err := c.Plan(context.Background(), "EURUSD", market.Buy)
	require.NoError(t, err)
	assert.InDelta(t, 1.10010, buy.Entry, 1e-9)
	assert.InDelta(t, 1.10010-0.0015, buy.StopLoss, 1e-9)
	assert.InDelta(t, 1.10010+0.0030, buy.TakeProfit, 1e-9)

	sell, err := c.Plan(context.Background(), "EURUSD", market.Sell)
	require.NoError(t, err)
	assert.InDelta(t, 1.10000, sell.Entry, 1e-9)
	assert.InDelta(t, 1.10000+0.0015, sell.StopLoss, 1e-9)
	assert.InDelta(t, 1.10000-0.0030, sell.TakeProfit, 1e-9)
}

func TestCalculatorCurrentPolicyScenario(t *testing.T) {
	t.Parallel()

	e := newMarket(t)
	c := NewCalculator(e, CurrentPolicy)

	p, err := c.PlanAt(context.Background(), "EURUSD", market.Buy, 1.08500)
	require.NoError(t, err)
	assert.InDelta(t, 1.08500-0.0010, p.StopLoss, 1e-9)
	assert.InDelta(t, 1.08500+0.0012, p.TakeProfit, 1e-9)
}

func TestCalculatorNoQuote(t *testing.T) {
	t.Parallel()

	c := NewCalculator(newMarket(t), CurrentPolicy)
	_, err := c.Plan(context.Background(), "EURUSD", market.Buy)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestCalculatorNoCandles(t *testing.T) {
	t.Parallel()

	c := NewCalculator(sim.NewEngine(), CurrentPolicy)
	_, err := c.PlanAt(context.Background(), "EURUSD", market.Sell, 1.1)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestCalculatorJPYPip(t *testing.T) {
	t.Parallel()

	e := sim.NewEngine()
	e.SetCandles("USDJPY", market.M1, candles(
		[2]float64{150.100, 150.000},
		[2]float64{150.150, 150.050},
		[2]float64{150.200, 150.100},
	))
	c := NewCalculator(e, CurrentPolicy)
	d, err := c.Distances(context.Background(), "USDJPY")
	require.NoError(t, err)
	assert.InDelta(t, 0.01, d.PipSize, 1e-12)
	assert.InDelta(t, 20, d.VolatilityPips, 1e-6)
}

func TestPolicyByName(t *testing.T) {
	t.Parallel()

	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, CurrentPolicy, p)

	p, err = PolicyByName("legacy")
	require.NoError(t, err)
	assert.Equal(t, LegacyPolicy, p)

	_, err = PolicyByName("yolo")
	assert.Error(t, err)

	assert.Error(t, Policy{Multiplier: 0, RewardRatio: 1}.Validate())
	assert.NoError(t, CurrentPolicy.Validate())
}
