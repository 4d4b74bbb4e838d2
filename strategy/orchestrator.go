package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/execution"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/pkg/id"
	"github.com/rustyeddy/newstrader/risk"
	"github.com/rustyeddy/newstrader/signal"
)

// DefaultLots is the volume of every order the strategy places.
const DefaultLots = 0.01

var (
	ErrNoSignal     = errors.New("no trend signal")
	ErrInitialOrder = errors.New("initial order failed")
)

// Signal is a triggered news event resolved to an instrument. Direction may
// be empty, in which case the Detector decides.
type Signal struct {
	Instrument string
	Direction  market.Direction
	Label      string
}

// Result is what Execute produced: a snapshot of the run and, for reactive
// overlays, the monitor that now owns it. The caller starts the monitor.
type Result struct {
	Run     Run
	Monitor *Monitor
}

type Orchestrator struct {
	Market   broker.MarketAccess
	Detector signal.Detector
	Risk     *risk.Calculator
	Exec     *execution.Engine
	Overlay  Overlay
	Tracker  *Tracker
	Lots     float64

	log zerolog.Logger
}

func NewOrchestrator(
	m broker.MarketAccess,
	d signal.Detector,
	calc *risk.Calculator,
	exec *execution.Engine,
	overlay Overlay,
	store RunStore,
	log zerolog.Logger,
) *Orchestrator {
	log = log.With().Str("component", "strategy").Logger()
	if overlay == nil {
		overlay = NoOverlay{}
	}
	return &Orchestrator{
		Market:   m,
		Detector: d,
		Risk:     calc,
		Exec:     exec,
		Overlay:  overlay,
		Tracker:  NewTracker(store, log),
		Lots:     DefaultLots,
		log:      log,
	}
}

// Execute runs one signal through the state machine. Terminal failures are
// recorded on the run and also returned as errors.
func (o *Orchestrator) Execute(ctx context.Context, sig Signal) (Result, error) {
	now := o.Tracker.now().UTC()
	run := &Run{
		ID:         id.At(now),
		Instrument: sig.Instrument,
		Label:      sig.Label,
		Overlay:    o.Overlay.Name(),
		State:      Idle,
		Active:     true,
		Lots:       o.lots(),
		Created:    now,
		Updated:    now,
	}
	o.Tracker.save(ctx, run)

	dir := sig.Direction
	if !dir.Valid() {
		d, err := o.Detector.Detect(ctx, sig.Instrument)
		if err != nil {
			o.log.Debug().Err(err).Str("instrument", sig.Instrument).Msg("trend unavailable")
		}
		dir = d
	}
	run.Direction = dir
	o.Tracker.Advance(ctx, run, TrendEvaluated, "")

	if !dir.Valid() {
		o.Tracker.Finish(ctx, run, NoSignal, "no trend")
		return Result{Run: run.Snapshot()}, fmt.Errorf("%s: %w", sig.Instrument, ErrNoSignal)
	}

	plan, err := o.Risk.Plan(ctx, sig.Instrument, dir)
	if err != nil {
		o.Tracker.Finish(ctx, run, InitialOrderFailed, err.Error())
		return Result{Run: run.Snapshot()}, fmt.Errorf("%s plan: %w: %w", sig.Instrument, ErrInitialOrder, err)
	}

	out, err := o.Exec.PlaceMarket(ctx, execution.MarketOrder{
		Instrument: sig.Instrument,
		Direction:  dir,
		Lots:       run.Lots,
		StopLoss:   plan.StopLoss,
		TakeProfit: plan.TakeProfit,
		Label:      sig.Label,
	})
	if err != nil {
		o.Tracker.Finish(ctx, run, InitialOrderFailed, out.Reason)
		return Result{Run: run.Snapshot()}, fmt.Errorf("%s: %w: %w", sig.Instrument, ErrInitialOrder, err)
	}

	run.Entry = plan.Entry
	if out.FilledPrice > 0 {
		run.Entry = out.FilledPrice
	}
	if out.FilledLots > 0 {
		run.Lots = out.FilledLots
	}
	run.StopLoss = plan.StopLoss
	run.TakeProfit = plan.TakeProfit
	run.PipSize, run.Decimals = o.precision(ctx, sig.Instrument)
	o.Tracker.Advance(ctx, run, InitialOrderPlaced, "")

	mon, err := o.Overlay.Arm(ctx, run, o.Tracker)
	if err != nil {
		o.log.Error().Err(err).Str("run", run.ID).Msg("overlay failed")
	}
	if mon != nil {
		// The monitor owns run from here on; hand back what it started with.
		return Result{Run: mon.start, Monitor: mon}, err
	}
	return Result{Run: run.Snapshot()}, err
}

func (o *Orchestrator) lots() float64 {
	if o.Lots <= 0 {
		return DefaultLots
	}
	return o.Lots
}

// precision falls back to the major-pair pip when metadata is missing.
func (o *Orchestrator) precision(ctx context.Context, instrument string) (pip float64, decimals int) {
	if info, err := o.Market.GetInstrument(ctx, instrument); err == nil {
		return info.PipSize(), info.Decimals
	}
	return market.PipSize(5), 0
}
