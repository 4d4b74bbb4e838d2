package broker

import (
	"context"
	"sync"

	"github.com/rustyeddy/newstrader/market"
)

// Serialized funnels every call through one mutex so concurrent monitors never
// interleave requests on a session that is not safe for concurrent use.
type Serialized struct {
	mu   sync.Mutex
	next MarketAccess
}

func Serialize(m MarketAccess) *Serialized {
	return &Serialized{next: m}
}

func (s *Serialized) GetCandles(ctx context.Context, instrument string, tf market.Timeframe, count int) ([]market.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.GetCandles(ctx, instrument, tf, count)
}

func (s *Serialized) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.GetTick(ctx, instrument)
}

func (s *Serialized) GetInstrument(ctx context.Context, instrument string) (market.InstrumentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.GetInstrument(ctx, instrument)
}

func (s *Serialized) GetOpenPositions(ctx context.Context, instrument string) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.GetOpenPositions(ctx, instrument)
}

func (s *Serialized) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.SubmitOrder(ctx, req)
}
