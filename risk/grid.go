package risk

import "math"

// GridPlan holds the adverse-excursion distances, in pips from entry, at
// which grid re-entries and the hedge are placed.
type GridPlan struct {
	Levels   []float64
	Hedge    float64
	Adaptive bool
}

// DefaultGrid is used when volatility is degenerate.
func DefaultGrid() GridPlan {
	return GridPlan{Levels: []float64{20, 40, 60}, Hedge: 50}
}

// AdaptiveGrid scales grid and hedge distances with volatility: levels at
// 1.5x, 3x and 4.5x volatility (floors 10, 20, 30 pips) and the hedge at 4x
// (floor 30).
func AdaptiveGrid(volatilityPips, pipSize float64) GridPlan {
	if volatilityPips <= 0 || pipSize <= 0 || math.IsNaN(volatilityPips) {
		return DefaultGrid()
	}
	return GridPlan{
		Levels: []float64{
			math.Max(1.5*volatilityPips, 10),
			math.Max(3*volatilityPips, 20),
			math.Max(4.5*volatilityPips, 30),
		},
		Hedge:    math.Max(4*volatilityPips, 30),
		Adaptive: true,
	}
}

// Deepest returns the largest grid level.
func (g GridPlan) Deepest() float64 {
	var m float64
	for _, l := range g.Levels {
		m = math.Max(m, l)
	}
	return m
}
