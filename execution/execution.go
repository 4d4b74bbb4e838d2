// Package execution turns trade decisions into broker submissions: market
// and pending entries with a single reduced-size retry on margin refusal, and
// best-effort closing of every position on an instrument.
package execution

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
)

var (
	ErrDataUnavailable    = errors.New("market data unavailable")
	ErrInsufficientMargin = errors.New("insufficient margin")
	ErrOrderRejected      = errors.New("order rejected")
	ErrPartialClose       = errors.New("some positions failed to close")
)

const (
	// MinLots is the smallest tradeable volume.
	MinLots = 0.01
	// PendingExpiry is added to the broker's server time for pending orders.
	PendingExpiry = 30 * time.Minute
)

// Outcome is the record of one submission attempt.
type Outcome struct {
	ID          string
	RetryOf     string
	OK          bool
	Code        broker.ResultCode
	FilledPrice float64
	FilledLots  float64
	Reason      string
	Request     broker.OrderRequest
	Time        time.Time
}

// Recorder persists attempts. A nil Recorder is allowed.
type Recorder interface {
	RecordOutcome(ctx context.Context, o Outcome) error
}

// MarketOrder is an immediate entry.
type MarketOrder struct {
	Instrument string
	Direction  market.Direction
	Lots       float64
	StopLoss   float64
	TakeProfit float64
	Label      string
}

// PendingOrder rests at Price. The limit/stop subtype is chosen against the
// live quote.
type PendingOrder struct {
	MarketOrder
	Price float64
}

type Engine struct {
	Market   broker.MarketAccess
	Recorder Recorder
	log      zerolog.Logger
}

func New(m broker.MarketAccess, rec Recorder, log zerolog.Logger) *Engine {
	return &Engine{
		Market:   m,
		Recorder: rec,
		log:      log.With().Str("component", "execution").Logger(),
	}
}

// HalfLots is the retry size after a margin refusal: lots/2 rounded to two
// decimals, never below MinLots.
func HalfLots(lots float64) float64 {
	half := decimal.NewFromFloat(lots).Div(decimal.NewFromInt(2)).Round(2)
	floor := decimal.NewFromFloat(MinLots)
	if half.LessThan(floor) {
		half = floor
	}
	return half.InexactFloat64()
}
