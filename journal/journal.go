// Package journal persists order attempts and strategy runs.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/newstrader/execution"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("journal: not found")

// RunRecord is the persisted form of a strategy run.
type RunRecord struct {
	ID         string
	Instrument string
	Label      string
	Direction  string
	Overlay    string
	State      string
	Active     bool
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Lots       float64
	GridLevels []float64
	// PlanLevels and PlanHedge are the grid the run was armed with, in pips.
	PlanLevels []float64
	PlanHedge  float64
	HedgeArmed bool
	Reason     string
	Created    time.Time
	Updated    time.Time
}

// Journal records every order attempt and the latest state of every run.
type Journal interface {
	RecordOutcome(ctx context.Context, o execution.Outcome) error
	SaveRun(ctx context.Context, r RunRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordOutcome(context.Context, execution.Outcome) error { return nil }
func (Nop) SaveRun(context.Context, RunRecord) error               { return nil }
func (Nop) Close() error                                           { return nil }
