// Package broker defines the market-access capability the strategy engine
// consumes. Implementations live in sim (in-memory) and oanda (REST).
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/newstrader/market"
)

var (
	// ErrInstrumentNotFound is returned by GetInstrument for unknown symbols.
	ErrInstrumentNotFound = errors.New("instrument not found")
	// ErrNoData is returned when candles or quotes cannot be supplied.
	ErrNoData = errors.New("market data unavailable")
)

// MarketAccess is the brokerage session: quotes, candles, metadata, positions
// and order transmission. It is injected into every component that needs it.
type MarketAccess interface {
	GetCandles(ctx context.Context, instrument string, tf market.Timeframe, count int) ([]market.Candle, error)
	GetTick(ctx context.Context, instrument string) (market.Tick, error)
	GetInstrument(ctx context.Context, instrument string) (market.InstrumentInfo, error)
	// GetOpenPositions lists open positions; an empty instrument lists all.
	GetOpenPositions(ctx context.Context, instrument string) ([]Position, error)
	// SubmitOrder transmits req. A nil result means the broker never answered.
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// Position is an open trade held at the broker.
type Position struct {
	Ticket     string
	Instrument string
	Direction  market.Direction
	Volume     float64
	OpenPrice  float64
	OpenTime   time.Time
}

// HasOpenPosition reports whether any position is open on instrument.
func HasOpenPosition(ctx context.Context, m MarketAccess, instrument string) (bool, error) {
	positions, err := m.GetOpenPositions(ctx, instrument)
	if err != nil {
		return false, err
	}
	for _, p := range positions {
		if p.Instrument == instrument {
			return true, nil
		}
	}
	return false, nil
}
