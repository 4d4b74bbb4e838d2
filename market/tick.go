package market

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoTick is returned by TickStore when no quote was recorded for an instrument.
var ErrNoTick = errors.New("tick not found")

// Tick is a bid/ask quote stamped with the broker's server time.
type Tick struct {
	Instrument string
	Bid        float64
	Ask        float64
	Time       time.Time
}

func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// PriceFor returns the side of the book an order in direction d fills against:
// ask for buys, bid for sells.
func (t Tick) PriceFor(d Direction) float64 {
	if d == Sell {
		return t.Bid
	}
	return t.Ask
}

// TickStore keeps the latest quote per instrument. Quotes arriving out of
// order, as when a stream and a poller feed the same store, never replace a
// newer one.
type TickStore struct {
	mu     sync.RWMutex
	latest map[string]Tick
}

func NewTickStore() *TickStore {
	return &TickStore{latest: make(map[string]Tick)}
}

// Set stores t unless a quote with a later Time is already held. It reports
// whether t was kept.
func (s *TickStore) Set(t Tick) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.latest[t.Instrument]; ok && t.Time.Before(cur.Time) {
		return false
	}
	s.latest[t.Instrument] = t
	return true
}

func (s *TickStore) Get(instrument string) (Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.latest[instrument]
	if !ok {
		return Tick{}, fmt.Errorf("%s: %w", instrument, ErrNoTick)
	}
	return t, nil
}
