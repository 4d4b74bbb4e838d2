package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/newstrader/execution"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Monitors write concurrently; sqlite allows one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			db.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordOutcome(ctx context.Context, o execution.Outcome) error {
	r := o.Request
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO outcomes
		(id, retry_of, ok, code, instrument, direction, kind, lots, price, stop_loss, take_profit,
		 label, position, filled_price, filled_lots, reason, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.RetryOf, o.OK, int(o.Code), r.Instrument, string(r.Direction), string(r.Kind),
		r.Lots, r.Price, r.StopLoss, r.TakeProfit, r.Label, r.Position,
		o.FilledPrice, o.FilledLots, o.Reason, o.Time.UTC(),
	)
	return err
}

// SaveRun inserts r or replaces the stored row with the same ID.
func (j *SQLite) SaveRun(ctx context.Context, r RunRecord) error {
	levels, err := json.Marshal(nonNil(r.GridLevels))
	if err != nil {
		return err
	}
	plan, err := json.Marshal(nonNil(r.PlanLevels))
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, instrument, label, direction, overlay, state, active, entry_price, stop_loss, take_profit,
		 lots, grid_levels, plan_levels, plan_hedge, hedge_armed, reason, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			active = excluded.active,
			direction = excluded.direction,
			entry_price = excluded.entry_price,
			stop_loss = excluded.stop_loss,
			take_profit = excluded.take_profit,
			lots = excluded.lots,
			grid_levels = excluded.grid_levels,
			plan_levels = excluded.plan_levels,
			plan_hedge = excluded.plan_hedge,
			hedge_armed = excluded.hedge_armed,
			reason = excluded.reason,
			updated = excluded.updated`,
		r.ID, r.Instrument, r.Label, r.Direction, r.Overlay, r.State, r.Active,
		r.EntryPrice, r.StopLoss, r.TakeProfit, r.Lots, string(levels), string(plan), r.PlanHedge, r.HedgeArmed, r.Reason,
		r.Created.UTC(), r.Updated.UTC(),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nonNil(levels []float64) []float64 {
	if levels == nil {
		return []float64{}
	}
	return levels
}
