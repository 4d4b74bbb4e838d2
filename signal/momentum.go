package signal

import (
	"context"
	"fmt"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
)

// DefaultLookback is the number of M1 candles Momentum inspects.
const DefaultLookback = 3

// Momentum is the single-timeframe detector: two of the last three candles
// agree and the final close breaks the mean extreme of the candles before it.
type Momentum struct {
	Market    broker.MarketAccess
	Lookback  int
	Timeframe market.Timeframe
}

func NewMomentum(m broker.MarketAccess) *Momentum {
	return &Momentum{Market: m, Lookback: DefaultLookback, Timeframe: market.M1}
}

func (m *Momentum) Detect(ctx context.Context, instrument string) (market.Direction, error) {
	n := m.Lookback
	if n < 3 {
		n = DefaultLookback
	}
	tf := m.Timeframe
	if tf == "" {
		tf = market.M1
	}
	candles, err := m.Market.GetCandles(ctx, instrument, tf, n)
	if err != nil {
		return market.None, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if len(candles) < n {
		return market.None, fmt.Errorf("%w: need %d candles, got %d", ErrDataUnavailable, n, len(candles))
	}
	return Classify(market.Last(candles, n)), nil
}

// Classify applies the momentum rule to a window of at least three candles.
//
// buy:  >= 2 of the last 3 candles bullish and final close > mean(high[:-1])
// sell: >= 2 of the last 3 candles bearish and final close < mean(low[:-1])
func Classify(candles []market.Candle) market.Direction {
	if len(candles) < 3 {
		return market.None
	}

	var bulls, bears int
	for _, c := range candles[len(candles)-3:] {
		if c.Bullish() {
			bulls++
		}
		if c.Bearish() {
			bears++
		}
	}

	last := candles[len(candles)-1]
	prev := candles[:len(candles)-1]
	var highs, lows float64
	for _, c := range prev {
		highs += c.High
		lows += c.Low
	}
	meanHigh := highs / float64(len(prev))
	meanLow := lows / float64(len(prev))

	switch {
	case bulls >= 2 && last.Close > meanHigh:
		return market.Buy
	case bears >= 2 && last.Close < meanLow:
		return market.Sell
	}
	return market.None
}
