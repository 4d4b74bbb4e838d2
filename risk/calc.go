// Package risk turns recent price ranges into stop-loss and take-profit
// levels, and derives the grid and hedge distances used after entry.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/newstrader/market"
)

var (
	// ErrDataUnavailable means candles or a live quote could not be obtained.
	ErrDataUnavailable = errors.New("risk data unavailable")
	// ErrInsufficientData means fewer candles than the lookback, or a flat range.
	ErrInsufficientData = errors.New("insufficient volatility data")
)

// DefaultLookback is the number of one-minute candles sampled for volatility.
const DefaultLookback = 3

// Plan is a stop/target pair around an entry price.
type Plan struct {
	Direction  market.Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// Valid checks the ordering invariant: SL < entry < TP for buys and
// TP < entry < SL for sells.
func (p Plan) Valid() bool {
	switch p.Direction {
	case market.Buy:
		return p.StopLoss < p.Entry && p.Entry < p.TakeProfit
	case market.Sell:
		return p.TakeProfit < p.Entry && p.Entry < p.StopLoss
	}
	return false
}

// RR returns the reward to risk ratio of the plan.
func (p Plan) RR() float64 {
	return RR(p.Entry, p.StopLoss, p.TakeProfit)
}

func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// Volatility is the highest high minus the lowest low over the trailing
// lookback candles.
func Volatility(candles []market.Candle, lookback int) (float64, error) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if len(candles) < lookback {
		return 0, fmt.Errorf("volatility needs %d candles, got %d: %w", lookback, len(candles), ErrInsufficientData)
	}
	high, low, _ := market.Range(market.Last(candles, lookback))
	return high - low, nil
}

// Distances are the pip measurements a Plan is built from.
type Distances struct {
	PipSize        float64
	VolatilityPips float64
	StopPips       float64
	TakePips       float64
	// Decimals rounds computed prices when positive.
	Decimals int
}

// NewDistances applies policy to a raw volatility measurement. minStop, when
// positive, is the broker's minimum stop distance in price units and widens
// both legs to at least that.
func NewDistances(volatility, pipSize float64, p Policy, minStop float64) (Distances, error) {
	if pipSize <= 0 {
		return Distances{}, fmt.Errorf("pip size must be positive, got %v", pipSize)
	}
	if volatility <= 0 {
		return Distances{}, fmt.Errorf("flat range: %w", ErrInsufficientData)
	}
	d := Distances{PipSize: pipSize, VolatilityPips: volatility / pipSize}
	d.StopPips = d.VolatilityPips * p.Multiplier
	d.TakePips = d.StopPips * p.RewardRatio

	if minStop > 0 {
		minPips := minStop / pipSize
		d.StopPips = math.Max(d.StopPips, minPips)
		d.TakePips = math.Max(d.TakePips, minPips)
	}
	return d, nil
}

// PlanAt places the stop and target around an arbitrary reference price.
func (d Distances) PlanAt(dir market.Direction, entry float64) (Plan, error) {
	if !dir.Valid() {
		return Plan{}, fmt.Errorf("plan: invalid direction %q", dir)
	}
	sign := dir.Sign()
	p := Plan{
		Direction:  dir,
		Entry:      entry,
		StopLoss:   entry - sign*d.StopPips*d.PipSize,
		TakeProfit: entry + sign*d.TakePips*d.PipSize,
	}
	if d.Decimals > 0 {
		p.StopLoss = RoundPrice(p.StopLoss, d.Decimals)
		p.TakeProfit = RoundPrice(p.TakeProfit, d.Decimals)
	}
	return p, nil
}

// RoundPrice rounds x to the quote precision. Non-positive decimals leave x
// unchanged.
func RoundPrice(x float64, decimals int) float64 {
	if decimals <= 0 {
		return x
	}
	f := math.Pow(10, float64(decimals))
	return math.Round(x*f) / f
}
