package market

import "time"

// Candle represents OHLC (Open, High, Low, Close) candlestick data
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Closes returns the close prices in candle order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Range returns the highest high and lowest low across candles.
// ok is false when candles is empty.
func Range(candles []Candle) (high, low float64, ok bool) {
	if len(candles) == 0 {
		return 0, 0, false
	}
	high, low = candles[0].High, candles[0].Low
	for _, c := range candles[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low, true
}

// Last returns the trailing n candles (or all of them when fewer exist).
func Last(candles []Candle, n int) []Candle {
	if n >= len(candles) {
		return candles
	}
	return candles[len(candles)-n:]
}
