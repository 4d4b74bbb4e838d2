package execution

import (
	"context"
	"fmt"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/pkg/id"
)

// PlaceMarket fills o at the current quote. A margin refusal is retried
// exactly once at HalfLots. The returned Outcome is the last attempt; the
// error is nil only when it succeeded.
func (e *Engine) PlaceMarket(ctx context.Context, o MarketOrder) (Outcome, error) {
	tick, err := e.Market.GetTick(ctx, o.Instrument)
	if err != nil {
		out := e.unavailable(ctx, o, err)
		return out, fmt.Errorf("%s quote: %w", o.Instrument, ErrDataUnavailable)
	}

	req := broker.OrderRequest{
		Instrument: o.Instrument,
		Direction:  o.Direction,
		Kind:       broker.Market,
		Lots:       o.Lots,
		Price:      tick.PriceFor(o.Direction),
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		Label:      o.Label,
	}
	return e.submitWithRetry(ctx, req, tick)
}

// PlacePending places o as a limit or stop order expiring PendingExpiry after
// the broker's current time.
func (e *Engine) PlacePending(ctx context.Context, o PendingOrder) (Outcome, error) {
	tick, err := e.Market.GetTick(ctx, o.Instrument)
	if err != nil {
		out := e.unavailable(ctx, o.MarketOrder, err)
		return out, fmt.Errorf("%s quote: %w", o.Instrument, ErrDataUnavailable)
	}

	kind, err := broker.PendingKind(o.Direction, o.Price, tick.PriceFor(o.Direction))
	if err != nil {
		return Outcome{Reason: err.Error()}, fmt.Errorf("%w: %v", ErrOrderRejected, err)
	}

	req := broker.OrderRequest{
		Instrument: o.Instrument,
		Direction:  o.Direction,
		Kind:       kind,
		Lots:       o.Lots,
		Price:      o.Price,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		Label:      o.Label,
		Expiration: tick.Time.Add(PendingExpiry),
	}
	return e.submitWithRetry(ctx, req, tick)
}

func (e *Engine) submitWithRetry(ctx context.Context, req broker.OrderRequest, tick market.Tick) (Outcome, error) {
	first := e.submit(ctx, req, tick, "")
	if first.OK {
		return first, nil
	}
	if first.Code != broker.CodeInsufficientMargin {
		return first, fmt.Errorf("%s %s: %w: %s", req.Instrument, req.Direction, ErrOrderRejected, first.Reason)
	}

	retry := req
	retry.Lots = HalfLots(req.Lots)
	e.log.Warn().
		Str("instrument", req.Instrument).
		Float64("lots", req.Lots).
		Float64("retry_lots", retry.Lots).
		Msg("insufficient margin, retrying with reduced volume")

	second := e.submit(ctx, retry, tick, first.ID)
	if second.OK {
		return second, nil
	}
	if second.Code == broker.CodeInsufficientMargin {
		return second, fmt.Errorf("%s %s: %w", req.Instrument, req.Direction, ErrInsufficientMargin)
	}
	return second, fmt.Errorf("%s %s: %w: %s", req.Instrument, req.Direction, ErrOrderRejected, second.Reason)
}

// submit sends one request and records the attempt.
func (e *Engine) submit(ctx context.Context, req broker.OrderRequest, tick market.Tick, retryOf string) Outcome {
	out := Outcome{
		ID:      id.At(tick.Time),
		RetryOf: retryOf,
		Request: req,
		Time:    tick.Time,
	}

	res, err := e.Market.SubmitOrder(ctx, req)
	switch {
	case res == nil:
		out.Reason = "no answer from broker"
		if err != nil {
			out.Reason = err.Error()
		}
	case res.Code == broker.CodeDone:
		out.OK = true
		out.Code = res.Code
		out.FilledPrice = res.FilledPrice
		out.FilledLots = res.FilledLots
		out.Reason = res.Message
	default:
		out.Code = res.Code
		out.Reason = fmt.Sprintf("%s: %s", res.Code, res.Message)
	}

	e.logAttempt(out)
	e.record(ctx, out)
	return out
}

func (e *Engine) unavailable(ctx context.Context, o MarketOrder, err error) Outcome {
	out := Outcome{
		ID:     id.New(),
		Reason: fmt.Sprintf("quote unavailable: %v", err),
		Request: broker.OrderRequest{
			Instrument: o.Instrument,
			Direction:  o.Direction,
			Lots:       o.Lots,
			StopLoss:   o.StopLoss,
			TakeProfit: o.TakeProfit,
			Label:      o.Label,
		},
	}
	e.log.Error().Err(err).
		Str("instrument", o.Instrument).
		Str("direction", o.Direction.String()).
		Str("label", o.Label).
		Msg("order skipped")
	e.record(ctx, out)
	return out
}

func (e *Engine) logAttempt(out Outcome) {
	r := out.Request
	ev := e.log.Info()
	if !out.OK {
		ev = e.log.Error()
	}
	ev.Str("id", out.ID).
		Str("instrument", r.Instrument).
		Str("direction", r.Direction.String()).
		Str("kind", string(r.Kind)).
		Float64("lots", r.Lots).
		Float64("price", r.Price).
		Float64("sl", r.StopLoss).
		Float64("tp", r.TakeProfit).
		Str("label", r.Label).
		Int("code", int(out.Code)).
		Str("retry_of", out.RetryOf).
		Str("reason", out.Reason).
		Msg("order attempt")
}

func (e *Engine) record(ctx context.Context, out Outcome) {
	if e.Recorder == nil {
		return
	}
	if err := e.Recorder.RecordOutcome(ctx, out); err != nil {
		e.log.Warn().Err(err).Str("id", out.ID).Msg("journal outcome")
	}
}
