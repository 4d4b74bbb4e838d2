package strategy

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/newstrader/journal"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/risk"
)

func TestRecover(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, risk.CurrentPolicy)
	f.sim.OpenPosition("EURUSD", market.Buy, 0.01, 1.10020)
	f.sim.OpenPosition("USDJPY", market.Sell, 0.01, 149.500)

	for _, r := range []journal.RunRecord{
		{ID: "a", Instrument: "EURUSD", Direction: "buy", Overlay: "reactive", State: "GridOrdersPlaced",
			Active: true, EntryPrice: 1.10020, StopLoss: 1.09920, TakeProfit: 1.10140, Lots: 0.01, GridLevels: []float64{20}},
		{ID: "b", Instrument: "GBPUSD", Direction: "sell", Overlay: "pending", State: "GridOrdersPlaced", Active: true, EntryPrice: 1.27},
		{ID: "c", Instrument: "USDJPY", Direction: "sell", Overlay: "pending", State: "RiskParametersDerived", Active: true, EntryPrice: 149.5},
		{ID: "d", Instrument: "EURUSD", Direction: "buy", Overlay: "reactive", State: "Closed"},
	} {
		require.NoError(t, f.store.SaveRun(ctx, r))
	}

	o := f.orchestrator(NoOverlay{})
	monitors, err := o.Recover(ctx, f.store)
	require.NoError(t, err)
	require.Len(t, monitors, 1)

	mon := monitors[0]
	assert.Equal(t, "a", mon.RunID())
	assert.True(t, mon.run.HasLevel(20))
	assert.Equal(t, []float64{15, 30, 45}, roundLevels(mon.grid.Levels))
	assert.Equal(t, 0.0001, mon.run.PipSize)
	assert.Equal(t, 5, mon.run.Decimals)
	assert.Equal(t, "Monitoring", f.store.get("a").State)
	assert.True(t, f.store.get("a").Active)

	b := f.store.get("b")
	assert.Equal(t, "Closed", b.State)
	assert.False(t, b.Active)

	c := f.store.get("c")
	assert.Equal(t, "RiskParametersDerived", c.State)
	assert.False(t, c.Active)
	assert.Contains(t, c.Reason, "interrupted")

	assert.Equal(t, []string{"Closed"}, f.store.states("d"))

	active, err := f.store.ActiveRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRecoverWithSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, risk.CurrentPolicy)

	db, err := journal.NewSQLite(t.TempDir() + "/journal.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ov := &ReactiveOverlay{Risk: f.calc, Exec: f.exec, Grid: DefaultGridConfig()}
	o := NewOrchestrator(f.sim, nil, f.calc, f.exec, ov, db, zerolog.Nop())
	res, err := o.Execute(ctx, Signal{Instrument: "EURUSD", Direction: market.Buy, Label: "NFP"})
	require.NoError(t, err)

	// A fresh process sees the run and re-attaches.
	restarted := NewOrchestrator(f.sim, nil, f.calc, f.exec, ov, db, zerolog.Nop())
	monitors, err := restarted.Recover(ctx, db)
	require.NoError(t, err)
	require.Len(t, monitors, 1)
	assert.Equal(t, res.Run.ID, monitors[0].RunID())
	assert.Equal(t, 1.10020, monitors[0].start.Entry)

	_, err = f.exec.CloseAll(ctx, "EURUSD", "flat")
	require.NoError(t, err)
	monitors, err = restarted.Recover(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, monitors)

	got, err := db.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, "Closed", got.State)
	assert.False(t, got.Active)
}

func TestRecoverKeepsGridPlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	// Stops far enough away that the drawdowns below do not close anything.
	f := newFixture(t, risk.Policy{Name: "wide", Multiplier: 5, RewardRatio: 2})

	db, err := journal.NewSQLite(t.TempDir() + "/journal.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ov := &ReactiveOverlay{Risk: f.calc, Exec: f.exec, Grid: DefaultGridConfig()}
	o := NewOrchestrator(f.sim, nil, f.calc, f.exec, ov, db, zerolog.Nop())
	res, err := o.Execute(ctx, Signal{Instrument: "EURUSD", Direction: market.Buy, Label: "NFP"})
	require.NoError(t, err)
	require.NotNil(t, res.Monitor)
	assert.Equal(t, []float64{15, 30, 45}, roundLevels(res.Run.Plan.Levels))

	quote(f, 1.09860)
	assert.False(t, res.Monitor.step(ctx))
	require.Len(t, f.sim.Submissions(), 2)

	// Volatility widens to 12 pips while the process is down.
	f.sim.SetCandles("EURUSD", market.M1, flatRange(5, 1.09940, 1.10060))

	restarted := NewOrchestrator(f.sim, nil, f.calc, f.exec, ov, db, zerolog.Nop())
	monitors, err := restarted.Recover(ctx, db)
	require.NoError(t, err)
	require.Len(t, monitors, 1)
	mon := monitors[0]
	assert.Equal(t, []float64{15, 30, 45}, roundLevels(mon.grid.Levels))
	assert.InDelta(t, 40, mon.grid.Hedge, 1e-6)
	require.Len(t, mon.run.Levels(), 1)

	quote(f, 1.09820)
	assert.False(t, mon.step(ctx))
	assert.Len(t, f.sim.Submissions(), 2)
	assert.Len(t, mon.run.Levels(), 1)

	open, err := f.sim.GetOpenPositions(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Len(t, open, 2)

	// The next tier of the original plan still fires.
	quote(f, 1.09700)
	mon.step(ctx)
	require.Len(t, f.sim.Submissions(), 3)
	assert.Equal(t, "grid_30", f.sim.Submissions()[2].Label)
}

func roundLevels(levels []float64) []float64 {
	out := make([]float64, len(levels))
	for i, l := range levels {
		out[i] = math.Round(l*1e6) / 1e6
	}
	return out
}
