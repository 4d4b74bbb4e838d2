package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/execution"
	"github.com/rustyeddy/newstrader/risk"
	"github.com/rustyeddy/newstrader/selector"
	"github.com/rustyeddy/newstrader/signal"
	"github.com/rustyeddy/newstrader/strategy"
)

// Trader opens a strategy for a currency's news. A non-nil Monitor must be
// started by the caller.
type Trader interface {
	Trade(ctx context.Context, currency, label string) (*strategy.Monitor, error)
}

// GridTrader selects a trending instrument and runs the orchestrator on it.
type GridTrader struct {
	Selector     *selector.Selector
	Orchestrator *strategy.Orchestrator
}

func (t *GridTrader) Trade(ctx context.Context, currency, label string) (*strategy.Monitor, error) {
	sel, err := t.Selector.Select(ctx, currency)
	if err != nil {
		return nil, err
	}
	res, err := t.Orchestrator.Execute(ctx, strategy.Signal{
		Instrument: sel.Instrument,
		Direction:  sel.Direction,
		Label:      label,
	})
	return res.Monitor, err
}

// SandwichTrader brackets the most liquid instrument for the currency.
type SandwichTrader struct {
	Selector *selector.Selector
	Sandwich *strategy.Sandwich
}

func (t *SandwichTrader) Trade(ctx context.Context, currency, label string) (*strategy.Monitor, error) {
	instrument, err := t.Selector.BestLiquidity(ctx, currency)
	if err != nil {
		return nil, err
	}
	_, err = t.Sandwich.Execute(ctx, instrument, label)
	return nil, err
}

// Deps are the collaborators a Trader is built from.
type Deps struct {
	Market          broker.MarketAccess
	Journal         execution.Recorder
	Runs            strategy.RunStore
	Policy          risk.Policy
	Table           selector.Table
	Grid            strategy.GridConfig
	MonitorInterval time.Duration
	Lots            float64
	Log             zerolog.Logger
}

// NewTrader wires the strategy mode: pending, reactive, multi-timeframe or
// sandwich. The returned Orchestrator is used for recovery in every mode.
func NewTrader(mode string, d Deps) (Trader, *strategy.Orchestrator, error) {
	m := broker.Serialize(d.Market)
	calc := risk.NewCalculator(m, d.Policy)
	exec := execution.New(m, d.Journal, d.Log)
	table := d.Table
	if table == nil {
		table = selector.ExtendedTable
	}

	var (
		detector signal.Detector = signal.NewMomentum(m)
		overlay  strategy.Overlay
	)
	switch mode {
	case "", "pending", "sandwich":
		overlay = &strategy.PendingOverlay{Risk: calc, Exec: exec, Grid: d.Grid}
	case "reactive":
		overlay = &strategy.ReactiveOverlay{Risk: calc, Exec: exec, Grid: d.Grid, Interval: d.MonitorInterval}
	case "multi-timeframe":
		detector = signal.NewMultiTimeframe(m)
		overlay = strategy.NoOverlay{}
	default:
		return nil, nil, fmt.Errorf("unknown strategy mode %q", mode)
	}

	orch := strategy.NewOrchestrator(m, detector, calc, exec, overlay, d.Runs, d.Log)
	if d.Lots > 0 {
		orch.Lots = d.Lots
	}
	sel := selector.New(m, detector, table, d.Log)

	if mode == "sandwich" {
		s := strategy.NewSandwich(m, calc, exec, d.Log)
		if d.Lots > 0 {
			s.Lots = d.Lots
		}
		return &SandwichTrader{Selector: sel, Sandwich: s}, orch, nil
	}
	return &GridTrader{Selector: sel, Orchestrator: orch}, orch, nil
}
