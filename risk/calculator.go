package risk

import (
	"context"
	"fmt"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
)

// Calculator samples recent candles from the market and sizes plans with
// its Policy.
type Calculator struct {
	Market    broker.MarketAccess
	Policy    Policy
	Lookback  int
	Timeframe market.Timeframe
}

func NewCalculator(m broker.MarketAccess, p Policy) *Calculator {
	return &Calculator{
		Market:    m,
		Policy:    p,
		Lookback:  DefaultLookback,
		Timeframe: market.M1,
	}
}

// Distances measures current volatility on instrument.
func (c *Calculator) Distances(ctx context.Context, instrument string) (Distances, error) {
	lookback := c.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	tf := c.Timeframe
	if tf == "" {
		tf = market.M1
	}

	// Unknown metadata falls back to the major-pair pip.
	pip := market.PipSize(5)
	var minStop float64
	var decimals int
	if info, err := c.Market.GetInstrument(ctx, instrument); err == nil {
		pip = info.PipSize()
		minStop = info.MinStopPrice()
		decimals = info.Decimals
	}

	candles, err := c.Market.GetCandles(ctx, instrument, tf, lookback)
	if err != nil {
		return Distances{}, fmt.Errorf("%w: candles %s: %v", ErrDataUnavailable, instrument, err)
	}
	vol, err := Volatility(candles, lookback)
	if err != nil {
		return Distances{}, err
	}
	d, err := NewDistances(vol, pip, c.Policy, minStop)
	if err != nil {
		return Distances{}, err
	}
	d.Decimals = decimals
	return d, nil
}

// Plan sizes a plan around the live quote: ask for buys, bid for sells.
func (c *Calculator) Plan(ctx context.Context, instrument string, dir market.Direction) (Plan, error) {
	d, err := c.Distances(ctx, instrument)
	if err != nil {
		return Plan{}, err
	}
	tick, err := c.Market.GetTick(ctx, instrument)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: quote %s: %v", ErrDataUnavailable, instrument, err)
	}
	return d.PlanAt(dir, tick.PriceFor(dir))
}

// PlanAt sizes a plan around a reference price such as a grid level.
func (c *Calculator) PlanAt(ctx context.Context, instrument string, dir market.Direction, entry float64) (Plan, error) {
	d, err := c.Distances(ctx, instrument)
	if err != nil {
		return Plan{}, err
	}
	return d.PlanAt(dir, entry)
}
