package strategy

import (
	"context"
	"fmt"

	"github.com/rustyeddy/newstrader/execution"
	"github.com/rustyeddy/newstrader/risk"
)

// PendingOverlay places the whole grid and the hedge as resting orders right
// after entry and finishes the run.
type PendingOverlay struct {
	Risk *risk.Calculator
	Exec *execution.Engine
	Grid GridConfig
}

func (p *PendingOverlay) Name() string { return "pending" }

// Arm rests one order per grid level and the hedge at grid.Hedge pips from
// entry. The hedge can sit inside the deepest level (50 vs 60 pips by default).
func (p *PendingOverlay) Arm(ctx context.Context, run *Run, t *Tracker) (*Monitor, error) {
	grid, dist := p.Grid.plan(ctx, p.Risk, run.Instrument)
	run.Plan = grid
	t.Advance(ctx, run, RiskParametersDerived, "")

	var failed int
	for _, level := range sortedLevels(grid.Levels) {
		price := offset(run, run.Entry, level)
		sl, tp := stopsAt(run, dist, run.Direction, price)
		_, err := p.Exec.PlacePending(ctx, execution.PendingOrder{
			MarketOrder: execution.MarketOrder{
				Instrument: run.Instrument,
				Direction:  run.Direction,
				Lots:       run.Lots,
				StopLoss:   sl,
				TakeProfit: tp,
				Label:      gridLabel(level),
			},
			Price: price,
		})
		if err != nil {
			failed++
			continue
		}
		run.AddLevel(level)
	}
	t.Advance(ctx, run, GridOrdersPlaced, "")

	hedgeDir := run.Direction.Opposite()
	price := offset(run, run.Entry, grid.Hedge)
	sl, tp := hedgeStops(run, hedgeDir, price)
	_, err := p.Exec.PlacePending(ctx, execution.PendingOrder{
		MarketOrder: execution.MarketOrder{
			Instrument: run.Instrument,
			Direction:  hedgeDir,
			Lots:       run.Lots,
			StopLoss:   sl,
			TakeProfit: tp,
			Label:      hedgeLabel,
		},
		Price: price,
	})
	run.HedgeArmed = err == nil

	reason := ""
	switch {
	case err != nil:
		reason = fmt.Sprintf("hedge not placed: %v", err)
	case failed > 0:
		reason = fmt.Sprintf("%d grid orders not placed", failed)
	}
	t.Finish(ctx, run, HedgeOrderPlaced, reason)
	if err != nil {
		return nil, fmt.Errorf("hedge: %w", err)
	}
	return nil, nil
}
