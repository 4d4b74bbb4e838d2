// Package strategy drives a triggered news signal from trend check through
// the initial entry and the grid/hedge overlay that protects it.
package strategy

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/newstrader/journal"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/risk"
)

// State is a StrategyRun lifecycle step.
type State string

const (
	Idle                  State = "Idle"
	TrendEvaluated        State = "TrendEvaluated"
	NoSignal              State = "NoSignal"
	InitialOrderPlaced    State = "InitialOrderPlaced"
	InitialOrderFailed    State = "InitialOrderFailed"
	RiskParametersDerived State = "RiskParametersDerived"
	GridOrdersPlaced      State = "GridOrdersPlaced"
	HedgeOrderPlaced      State = "HedgeOrderPlaced"
	Monitoring            State = "Monitoring"
	Closed                State = "Closed"
)

// Run is the state of one triggered signal. While a Monitor is attached it
// owns the Run; everyone else works on snapshots.
type Run struct {
	ID         string
	Instrument string
	Label      string
	Direction  market.Direction
	Overlay    string
	State      State
	Active     bool

	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Lots       float64
	PipSize    float64
	Decimals   int

	// Plan is the grid derived at RiskParametersDerived. A recovered monitor
	// keeps using it so already placed levels still match.
	Plan       risk.GridPlan
	HedgeArmed bool
	Reason     string
	Created    time.Time
	Updated    time.Time

	levels []float64
}

// Levels returns the grid levels placed so far, in placement order.
func (r *Run) Levels() []float64 {
	return append([]float64(nil), r.levels...)
}

// HasLevel reports whether the grid level was already placed.
func (r *Run) HasLevel(level float64) bool {
	for _, l := range r.levels {
		if l == level {
			return true
		}
	}
	return false
}

// AddLevel records level once; it returns false if it was already present.
func (r *Run) AddLevel(level float64) bool {
	if r.HasLevel(level) {
		return false
	}
	r.levels = append(r.levels, level)
	return true
}

// Snapshot returns a copy that shares nothing with r.
func (r *Run) Snapshot() Run {
	c := *r
	c.levels = r.Levels()
	c.Plan.Levels = append([]float64(nil), r.Plan.Levels...)
	return c
}

func (r *Run) record() journal.RunRecord {
	return journal.RunRecord{
		ID:         r.ID,
		Instrument: r.Instrument,
		Label:      r.Label,
		Direction:  string(r.Direction),
		Overlay:    r.Overlay,
		State:      string(r.State),
		Active:     r.Active,
		EntryPrice: r.Entry,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		Lots:       r.Lots,
		GridLevels: r.Levels(),
		PlanLevels: append([]float64(nil), r.Plan.Levels...),
		PlanHedge:  r.Plan.Hedge,
		HedgeArmed: r.HedgeArmed,
		Reason:     r.Reason,
		Created:    r.Created,
		Updated:    r.Updated,
	}
}

func runFromRecord(rec journal.RunRecord) *Run {
	r := &Run{
		ID:         rec.ID,
		Instrument: rec.Instrument,
		Label:      rec.Label,
		Direction:  market.Direction(rec.Direction),
		Overlay:    rec.Overlay,
		State:      State(rec.State),
		Active:     rec.Active,
		Entry:      rec.EntryPrice,
		StopLoss:   rec.StopLoss,
		TakeProfit: rec.TakeProfit,
		Lots:       rec.Lots,
		Plan:       risk.GridPlan{Levels: append([]float64(nil), rec.PlanLevels...), Hedge: rec.PlanHedge},
		HedgeArmed: rec.HedgeArmed,
		Reason:     rec.Reason,
		Created:    rec.Created,
		Updated:    rec.Updated,
	}
	for _, l := range rec.GridLevels {
		r.AddLevel(l)
	}
	return r
}

// RunStore persists run snapshots.
type RunStore interface {
	SaveRun(ctx context.Context, r journal.RunRecord) error
}

// Tracker moves runs between states and persists every transition.
type Tracker struct {
	store RunStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewTracker(store RunStore, log zerolog.Logger) *Tracker {
	if store == nil {
		store = journal.Nop{}
	}
	return &Tracker{store: store, log: log, now: time.Now}
}

// Advance sets the state and saves the run.
func (t *Tracker) Advance(ctx context.Context, r *Run, s State, reason string) {
	r.State = s
	if reason != "" {
		r.Reason = reason
	}
	r.Updated = t.now().UTC()
	t.save(ctx, r)
}

// Finish is Advance into a terminal state.
func (t *Tracker) Finish(ctx context.Context, r *Run, s State, reason string) {
	r.Active = false
	t.Advance(ctx, r, s, reason)
}

func (t *Tracker) save(ctx context.Context, r *Run) {
	t.log.Info().
		Str("run", r.ID).
		Str("instrument", r.Instrument).
		Str("label", r.Label).
		Str("state", string(r.State)).
		Bool("active", r.Active).
		Floats64("grid", r.levels).
		Bool("hedge", r.HedgeArmed).
		Str("reason", r.Reason).
		Msg("run transition")
	// Persist even if the caller's context was cancelled.
	if err := t.store.SaveRun(context.WithoutCancel(ctx), r.record()); err != nil {
		t.log.Warn().Err(err).Str("run", r.ID).Msg("save run")
	}
}

func sortedLevels(levels []float64) []float64 {
	out := append([]float64(nil), levels...)
	sort.Float64s(out)
	return out
}
