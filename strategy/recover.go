package strategy

import (
	"context"
	"fmt"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/journal"
)

// RunLister lists runs that were still active when the process stopped.
type RunLister interface {
	ActiveRuns(ctx context.Context) ([]journal.RunRecord, error)
}

// Recover reconciles persisted active runs with the broker. Runs without an
// open position are closed, reactive runs get a fresh monitor on their saved
// grid plan and anything else is finished as interrupted. The caller starts
// the returned monitors.
func (o *Orchestrator) Recover(ctx context.Context, lister RunLister) ([]*Monitor, error) {
	recs, err := lister.ActiveRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("recover: %w", err)
	}

	var monitors []*Monitor
	for _, rec := range recs {
		run := runFromRecord(rec)
		log := o.log.With().Str("run", run.ID).Str("instrument", run.Instrument).Logger()

		open, err := broker.HasOpenPosition(ctx, o.Market, run.Instrument)
		if err != nil {
			log.Warn().Err(err).Msg("recover: positions unavailable")
			continue
		}
		if !open {
			o.Tracker.Finish(ctx, run, Closed, "no open position after restart")
			continue
		}
		if run.Overlay != "reactive" || !run.Direction.Valid() || run.Entry <= 0 {
			o.Tracker.Finish(ctx, run, run.State, "interrupted by restart")
			continue
		}

		run.PipSize, run.Decimals = o.precision(ctx, run.Instrument)
		reactive := o.reactive()
		grid := run.Plan
		if len(grid.Levels) == 0 || grid.Hedge <= 0 {
			grid, _ = reactive.Grid.plan(ctx, o.Risk, run.Instrument)
			run.Plan = grid
		}
		o.Tracker.Advance(ctx, run, Monitoring, "")
		log.Info().Floats64("placed", run.Levels()).Bool("hedge", run.HedgeArmed).Msg("monitor re-attached")
		monitors = append(monitors, reactive.monitor(run, grid, o.Tracker))
	}
	return monitors, nil
}

func (o *Orchestrator) reactive() *ReactiveOverlay {
	if r, ok := o.Overlay.(*ReactiveOverlay); ok {
		return r
	}
	return &ReactiveOverlay{Risk: o.Risk, Exec: o.Exec, Grid: DefaultGridConfig()}
}
