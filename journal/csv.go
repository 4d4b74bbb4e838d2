package journal

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/newstrader/execution"
)

var (
	outcomeHeader = []string{"id", "retry_of", "ok", "code", "instrument", "direction", "kind", "lots",
		"price", "stop_loss", "take_profit", "label", "position", "filled_price", "filled_lots", "reason", "time"}
	runHeader = []string{"id", "instrument", "label", "direction", "overlay", "state", "active",
		"entry_price", "stop_loss", "take_profit", "lots", "grid_levels", "hedge_armed", "reason", "created", "updated"}
)

// CSVJournal appends attempts and run snapshots to two CSV files. Every
// SaveRun appends a row, so a run appears once per transition.
type CSVJournal struct {
	mu       sync.Mutex
	outcomes *csv.Writer
	runs     *csv.Writer
	of, rf   *os.File
}

var _ Journal = (*CSVJournal)(nil)

func NewCSV(outcomesPath, runsPath string) (*CSVJournal, error) {
	of, err := os.Create(outcomesPath)
	if err != nil {
		return nil, err
	}
	rf, err := os.Create(runsPath)
	if err != nil {
		of.Close()
		return nil, err
	}

	ow := csv.NewWriter(of)
	rw := csv.NewWriter(rf)

	if err := ow.Write(outcomeHeader); err != nil {
		return nil, err
	}
	if err := rw.Write(runHeader); err != nil {
		return nil, err
	}

	ow.Flush()
	if err := ow.Error(); err != nil {
		return nil, err
	}
	rw.Flush()
	if err := rw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{outcomes: ow, runs: rw, of: of, rf: rf}, nil
}

func (j *CSVJournal) RecordOutcome(_ context.Context, o execution.Outcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	r := o.Request
	err := j.outcomes.Write([]string{
		o.ID,
		o.RetryOf,
		strconv.FormatBool(o.OK),
		strconv.Itoa(int(o.Code)),
		r.Instrument,
		string(r.Direction),
		string(r.Kind),
		f(r.Lots),
		f(r.Price),
		f(r.StopLoss),
		f(r.TakeProfit),
		r.Label,
		r.Position,
		f(o.FilledPrice),
		f(o.FilledLots),
		o.Reason,
		o.Time.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.outcomes.Flush()
	return j.outcomes.Error()
}

func (j *CSVJournal) SaveRun(_ context.Context, r RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	levels := make([]string, len(r.GridLevels))
	for i, l := range r.GridLevels {
		levels[i] = strconv.FormatFloat(l, 'f', -1, 64)
	}
	err := j.runs.Write([]string{
		r.ID,
		r.Instrument,
		r.Label,
		r.Direction,
		r.Overlay,
		r.State,
		strconv.FormatBool(r.Active),
		f(r.EntryPrice),
		f(r.StopLoss),
		f(r.TakeProfit),
		f(r.Lots),
		strings.Join(levels, ";"),
		strconv.FormatBool(r.HedgeArmed),
		r.Reason,
		r.Created.UTC().Format(time.RFC3339),
		r.Updated.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.runs.Flush()
	return j.runs.Error()
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.outcomes.Flush()
	if err := j.outcomes.Error(); err != nil {
		return err
	}
	j.runs.Flush()
	if err := j.runs.Error(); err != nil {
		return err
	}

	if err := j.of.Close(); err != nil {
		return err
	}
	return j.rf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
