package strategy

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/newstrader/execution"
	"github.com/rustyeddy/newstrader/journal"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/risk"
	"github.com/rustyeddy/newstrader/sim"
)

var now = time.Date(2025, 3, 12, 12, 35, 0, 0, time.UTC)

// memStore keeps the latest record per run and every state it went through.
type memStore struct {
	mu      sync.Mutex
	runs    map[string]journal.RunRecord
	history map[string][]string
}

func newMemStore() *memStore {
	return &memStore{runs: map[string]journal.RunRecord{}, history: map[string][]string{}}
}

func (s *memStore) SaveRun(_ context.Context, r journal.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	s.history[r.ID] = append(s.history[r.ID], r.State)
	return nil
}

func (s *memStore) ActiveRuns(context.Context) ([]journal.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []journal.RunRecord
	for _, r := range s.runs {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) get(id string) journal.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

func (s *memStore) states(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history[id]...)
}

// flatRange gives n M1 candles spanning exactly low..high.
func flatRange(n int, low, high float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{
			Time: now.Add(time.Duration(i-n) * time.Minute),
			Open: low, High: high, Low: low, Close: high,
		}
	}
	return out
}

type fixture struct {
	sim   *sim.Engine
	calc  *risk.Calculator
	exec  *execution.Engine
	store *memStore
}

// newFixture quotes EURUSD at 1.10000/1.10020 with 10 pips of M1 volatility.
func newFixture(t *testing.T, p risk.Policy) *fixture {
	t.Helper()
	s := sim.NewEngine()
	s.UpdatePrice(market.Tick{Instrument: "EURUSD", Bid: 1.10000, Ask: 1.10020, Time: now})
	s.SetCandles("EURUSD", market.M1, flatRange(5, 1.09950, 1.10050))
	return &fixture{
		sim:   s,
		calc:  risk.NewCalculator(s, p),
		exec:  execution.New(s, nil, zerolog.Nop()),
		store: newMemStore(),
	}
}

func (f *fixture) orchestrator(overlay Overlay) *Orchestrator {
	return NewOrchestrator(f.sim, nil, f.calc, f.exec, overlay, f.store, zerolog.Nop())
}
