package signal

import (
	"context"
	"fmt"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/indicators"
	"github.com/rustyeddy/newstrader/market"
)

// Oscillator bands for momentum confirmation. Sells use a lower, tighter band
// than buys.
const (
	BuyRSIMin  = 40.0
	BuyRSIMax  = 75.0
	SellRSIMin = 25.0
	SellRSIMax = 60.0
)

// MultiTimeframe filters with a slow-timeframe moving-average bias and
// confirms with fast-timeframe candle direction plus RSI.
type MultiTimeframe struct {
	Market broker.MarketAccess

	Macro      market.Timeframe
	Fast       market.Timeframe
	Count      int
	FastPeriod int
	SlowPeriod int
	RSIPeriod  int
}

func NewMultiTimeframe(m broker.MarketAccess) *MultiTimeframe {
	return &MultiTimeframe{
		Market:     m,
		Macro:      market.M5,
		Fast:       market.M1,
		Count:      50,
		FastPeriod: 20,
		SlowPeriod: 50,
		RSIPeriod:  14,
	}
}

func (d *MultiTimeframe) Detect(ctx context.Context, instrument string) (market.Direction, error) {
	macro, err := d.Market.GetCandles(ctx, instrument, d.Macro, d.Count)
	if err != nil {
		return market.None, fmt.Errorf("%w: %s candles: %v", ErrDataUnavailable, d.Macro, err)
	}
	fast, err := d.Market.GetCandles(ctx, instrument, d.Fast, d.Count)
	if err != nil {
		return market.None, fmt.Errorf("%w: %s candles: %v", ErrDataUnavailable, d.Fast, err)
	}

	bias, err := MacroBias(market.Closes(macro), d.FastPeriod, d.SlowPeriod)
	if err != nil {
		return market.None, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if bias == market.None || len(fast) == 0 {
		return market.None, nil
	}

	rsi, err := indicators.RSI(market.Closes(fast), d.RSIPeriod)
	if err != nil {
		return market.None, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if Confirm(bias, fast[len(fast)-1], rsi) {
		return bias, nil
	}
	return market.None, nil
}

// MacroBias is bullish when SMA(fast) > SMA(slow) and SMA(fast) is rising,
// bearish in the mirror case, neutral otherwise.
func MacroBias(closes []float64, fastPeriod, slowPeriod int) (market.Direction, error) {
	fastMA, err := indicators.SMA(closes, fastPeriod)
	if err != nil {
		return market.None, err
	}
	slowMA, err := indicators.SMA(closes, slowPeriod)
	if err != nil {
		return market.None, err
	}
	slope, err := indicators.SMASlope(closes, fastPeriod)
	if err != nil {
		return market.None, err
	}

	switch {
	case fastMA > slowMA && slope > 0:
		return market.Buy, nil
	case fastMA < slowMA && slope < 0:
		return market.Sell, nil
	}
	return market.None, nil
}

// Confirm checks the fast-timeframe candle and oscillator agree with bias.
// Bounds are exclusive.
func Confirm(bias market.Direction, last market.Candle, rsi float64) bool {
	switch bias {
	case market.Buy:
		return last.Bullish() && rsi > BuyRSIMin && rsi < BuyRSIMax
	case market.Sell:
		return last.Bearish() && rsi > SellRSIMin && rsi < SellRSIMax
	}
	return false
}
