package strategy

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/execution"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/risk"
)

// Sandwich defaults.
const (
	SandwichLookback   = 5
	SandwichBufferPips = 3.0
)

// Sandwich brackets the recent M1 range with a buy stop above the high and a
// sell stop below the low, so whichever way the release breaks gets traded.
type Sandwich struct {
	Market     broker.MarketAccess
	Risk       *risk.Calculator
	Exec       *execution.Engine
	Lookback   int
	BufferPips float64
	Lots       float64

	log zerolog.Logger
}

func NewSandwich(m broker.MarketAccess, calc *risk.Calculator, exec *execution.Engine, log zerolog.Logger) *Sandwich {
	return &Sandwich{
		Market:     m,
		Risk:       calc,
		Exec:       exec,
		Lookback:   SandwichLookback,
		BufferPips: SandwichBufferPips,
		Lots:       DefaultLots,
		log:        log.With().Str("component", "sandwich").Logger(),
	}
}

// Breakout is the bracket placed by the sandwich.
type Breakout struct {
	Instrument string
	High       float64
	Low        float64
	HighOrder  execution.Outcome
	LowOrder   execution.Outcome
}

// Range returns the breakout prices: the lookback high plus the buffer and
// the lookback low minus it.
func (s *Sandwich) Range(ctx context.Context, instrument string) (high, low float64, err error) {
	lookback := s.Lookback
	if lookback <= 0 {
		lookback = SandwichLookback
	}
	candles, err := s.Market.GetCandles(ctx, instrument, market.M1, lookback)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: candles %s: %v", execution.ErrDataUnavailable, instrument, err)
	}
	if len(candles) < lookback {
		return 0, 0, fmt.Errorf("%w: %s has %d candles, need %d", execution.ErrDataUnavailable, instrument, len(candles), lookback)
	}
	hi, lo, _ := market.Range(market.Last(candles, lookback))

	pip, decimals := market.PipSize(5), 0
	if info, err := s.Market.GetInstrument(ctx, instrument); err == nil {
		pip, decimals = info.PipSize(), info.Decimals
	}
	buffer := s.BufferPips
	if buffer < 0 {
		buffer = SandwichBufferPips
	}
	return risk.RoundPrice(hi+buffer*pip, decimals), risk.RoundPrice(lo-buffer*pip, decimals), nil
}

// Execute places both legs. A failed leg does not stop the other; the error
// aggregates whatever failed.
func (s *Sandwich) Execute(ctx context.Context, instrument, label string) (Breakout, error) {
	b := Breakout{Instrument: instrument}
	high, low, err := s.Range(ctx, instrument)
	if err != nil {
		return b, err
	}
	b.High, b.Low = high, low

	lots := s.Lots
	if lots <= 0 {
		lots = DefaultLots
	}

	var result *multierror.Error
	place := func(dir market.Direction, price float64, suffix string) execution.Outcome {
		plan, err := s.Risk.PlanAt(ctx, instrument, dir, price)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s leg: %w", suffix, err))
			return execution.Outcome{Reason: err.Error()}
		}
		out, err := s.Exec.PlacePending(ctx, execution.PendingOrder{
			MarketOrder: execution.MarketOrder{
				Instrument: instrument,
				Direction:  dir,
				Lots:       lots,
				StopLoss:   plan.StopLoss,
				TakeProfit: plan.TakeProfit,
				Label:      label + "-" + suffix,
			},
			Price: price,
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s leg: %w", suffix, err))
		}
		return out
	}

	b.LowOrder = place(market.Sell, low, "Low")
	b.HighOrder = place(market.Buy, high, "High")

	s.log.Info().
		Str("instrument", instrument).
		Str("label", label).
		Float64("high", high).
		Float64("low", low).
		Bool("high_ok", b.HighOrder.OK).
		Bool("low_ok", b.LowOrder.OK).
		Msg("sandwich placed")

	return b, result.ErrorOrNil()
}
