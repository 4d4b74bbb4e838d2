package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/execution"
	"github.com/rustyeddy/newstrader/market"
)

const outcomeColumns = `id, retry_of, ok, code, instrument, direction, kind, lots, price, stop_loss,
	take_profit, label, position, filled_price, filled_lots, reason, time`

const runColumns = `id, instrument, label, direction, overlay, state, active, entry_price, stop_loss,
	take_profit, lots, grid_levels, plan_levels, plan_hedge, hedge_armed, reason, created, updated`

type scanner interface {
	Scan(dest ...any) error
}

func scanOutcome(s scanner) (execution.Outcome, error) {
	var (
		o         execution.Outcome
		code      int
		direction string
		kind      string
	)
	err := s.Scan(
		&o.ID, &o.RetryOf, &o.OK, &code,
		&o.Request.Instrument, &direction, &kind,
		&o.Request.Lots, &o.Request.Price, &o.Request.StopLoss, &o.Request.TakeProfit,
		&o.Request.Label, &o.Request.Position,
		&o.FilledPrice, &o.FilledLots, &o.Reason, &o.Time,
	)
	o.Code = broker.ResultCode(code)
	o.Request.Direction = market.Direction(direction)
	o.Request.Kind = broker.OrderKind(kind)
	return o, err
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		r      RunRecord
		levels string
		plan   string
	)
	if err := s.Scan(
		&r.ID, &r.Instrument, &r.Label, &r.Direction, &r.Overlay, &r.State, &r.Active,
		&r.EntryPrice, &r.StopLoss, &r.TakeProfit, &r.Lots, &levels, &plan, &r.PlanHedge, &r.HedgeArmed,
		&r.Reason, &r.Created, &r.Updated,
	); err != nil {
		return RunRecord{}, err
	}
	if err := json.Unmarshal([]byte(levels), &r.GridLevels); err != nil {
		return RunRecord{}, fmt.Errorf("run %s grid levels: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(plan), &r.PlanLevels); err != nil {
		return RunRecord{}, fmt.Errorf("run %s grid plan: %w", r.ID, err)
	}
	return r, nil
}

// GetOutcome returns a single attempt by ID.
func (j *SQLite) GetOutcome(ctx context.Context, id string) (execution.Outcome, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+outcomeColumns+` FROM outcomes WHERE id = ?`, id)
	o, err := scanOutcome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return execution.Outcome{}, fmt.Errorf("outcome %q: %w", id, ErrNotFound)
	}
	return o, err
}

// ListOutcomesBetween returns attempts with time in [start, end), oldest first.
func (j *SQLite) ListOutcomesBetween(ctx context.Context, start, end time.Time) ([]execution.Outcome, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+outcomeColumns+`
		FROM outcomes
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []execution.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListOutcomesByLabel returns every attempt carrying label, oldest first.
func (j *SQLite) ListOutcomesByLabel(ctx context.Context, label string) ([]execution.Outcome, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+outcomeColumns+`
		FROM outcomes
		WHERE label = ?
		ORDER BY time ASC, id ASC`, label)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []execution.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (j *SQLite) GetRun(ctx context.Context, id string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	return r, err
}

// ActiveRuns returns runs not yet in a terminal state, oldest first.
func (j *SQLite) ActiveRuns(ctx context.Context) ([]RunRecord, error) {
	return j.queryRuns(ctx, `SELECT `+runColumns+` FROM runs WHERE active = 1 ORDER BY created ASC, id ASC`)
}

// RecentRuns returns up to limit runs, newest first.
func (j *SQLite) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return j.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, id DESC LIMIT ?`, limit)
}

func (j *SQLite) queryRuns(ctx context.Context, query string, args ...any) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
