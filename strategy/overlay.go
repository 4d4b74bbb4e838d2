package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/newstrader/execution"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/risk"
)

// Hedge protective distances, in pips from the hedge price.
const (
	HedgeStopPips = 10.0
	HedgeTakePips = 50.0
)

// Overlay adds risk management on top of a filled initial order. Arm
// receives a run in InitialOrderPlaced. Overlays that keep watching the
// position return a Monitor, which takes ownership of the run.
type Overlay interface {
	Name() string
	Arm(ctx context.Context, run *Run, t *Tracker) (*Monitor, error)
}

// OverlayByName builds the overlay for a strategy mode.
func OverlayByName(name string, calc *risk.Calculator, exec *execution.Engine, grid GridConfig) (Overlay, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pending":
		return &PendingOverlay{Risk: calc, Exec: exec, Grid: grid}, nil
	case "reactive":
		return &ReactiveOverlay{Risk: calc, Exec: exec, Grid: grid}, nil
	case "none":
		return NoOverlay{}, nil
	}
	return nil, fmt.Errorf("unknown overlay %q", name)
}

// NoOverlay leaves the initial order alone.
type NoOverlay struct{}

func (NoOverlay) Name() string { return "none" }

func (NoOverlay) Arm(ctx context.Context, run *Run, t *Tracker) (*Monitor, error) {
	t.Finish(ctx, run, InitialOrderPlaced, "")
	return nil, nil
}

// GridConfig chooses between volatility-scaled and fixed grid distances.
type GridConfig struct {
	Adaptive bool
	// Fixed is used when Adaptive is false or volatility is degenerate.
	Fixed risk.GridPlan
}

// DefaultGridConfig scales the grid with volatility.
func DefaultGridConfig() GridConfig {
	return GridConfig{Adaptive: true, Fixed: risk.DefaultGrid()}
}

func (g GridConfig) fixed() risk.GridPlan {
	if len(g.Fixed.Levels) == 0 || g.Fixed.Hedge <= 0 {
		return risk.DefaultGrid()
	}
	return g.Fixed
}

// plan resamples volatility and derives the grid. The Distances are zero
// when volatility could not be measured.
func (g GridConfig) plan(ctx context.Context, calc *risk.Calculator, instrument string) (risk.GridPlan, risk.Distances) {
	d, err := calc.Distances(ctx, instrument)
	if err != nil {
		return g.fixed(), risk.Distances{}
	}
	if !g.Adaptive {
		return g.fixed(), d
	}
	return risk.AdaptiveGrid(d.VolatilityPips, d.PipSize), d
}

// offset moves price by pips against dir: below for buys, above for sells.
func offset(run *Run, price, pips float64) float64 {
	return risk.RoundPrice(price-run.Direction.Sign()*pips*run.PipSize, run.Decimals)
}

// stopsAt returns SL/TP for an order in dir at price. Distances from the
// resampled volatility are used when available, otherwise the initial
// order's distances are reused.
func stopsAt(run *Run, d risk.Distances, dir market.Direction, price float64) (sl, tp float64) {
	if d.PipSize > 0 {
		if p, err := d.PlanAt(dir, price); err == nil {
			return p.StopLoss, p.TakeProfit
		}
	}
	stopDist := math.Abs(run.Entry - run.StopLoss)
	takeDist := math.Abs(run.TakeProfit - run.Entry)
	sign := dir.Sign()
	return risk.RoundPrice(price-sign*stopDist, run.Decimals), risk.RoundPrice(price+sign*takeDist, run.Decimals)
}

// hedgeStops returns the fixed hedge SL/TP around price for direction dir.
func hedgeStops(run *Run, dir market.Direction, price float64) (sl, tp float64) {
	sign := dir.Sign()
	sl = risk.RoundPrice(price-sign*HedgeStopPips*run.PipSize, run.Decimals)
	tp = risk.RoundPrice(price+sign*HedgeTakePips*run.PipSize, run.Decimals)
	return sl, tp
}

// gridLabel names a grid order by its level in whole pips.
func gridLabel(level float64) string {
	return fmt.Sprintf("grid_%.0f", level)
}

const hedgeLabel = "hedge"
