package sim

import (
	"time"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
)

// Trade is an open or closed simulated position.
type Trade struct {
	ID         string
	Instrument string
	Direction  market.Direction
	Lots       float64
	EntryPrice float64
	OpenTime   time.Time
	StopLoss   float64
	TakeProfit float64
	Label      string

	ClosePrice  float64
	CloseTime   time.Time
	CloseReason string
	Open        bool

	seq int
}

func (t *Trade) position() broker.Position {
	return broker.Position{
		Ticket:     t.ID,
		Instrument: t.Instrument,
		Direction:  t.Direction,
		Volume:     t.Lots,
		OpenPrice:  t.EntryPrice,
		OpenTime:   t.OpenTime,
	}
}

// mark is the price the trade would close at: bid for longs, ask for shorts.
func (t *Trade) mark(tick market.Tick) float64 {
	return tick.PriceFor(t.Direction.Opposite())
}

func (t *Trade) hitStopLoss(price float64) bool {
	if t.StopLoss == 0 {
		return false
	}
	if t.Direction == market.Buy {
		return price <= t.StopLoss
	}
	return price >= t.StopLoss
}

func (t *Trade) hitTakeProfit(price float64) bool {
	if t.TakeProfit == 0 {
		return false
	}
	if t.Direction == market.Buy {
		return price >= t.TakeProfit
	}
	return price <= t.TakeProfit
}

// Order is a resting pending order.
type Order struct {
	ID      string
	Request broker.OrderRequest
	Placed  time.Time

	seq int
}

// triggered reports whether the pending order fills at tick.
func (o *Order) triggered(tick market.Tick) bool {
	px := tick.PriceFor(o.Request.Direction)
	switch o.Request.Kind {
	case broker.BuyLimit, broker.SellStop:
		return px <= o.Request.Price
	case broker.BuyStop, broker.SellLimit:
		return px >= o.Request.Price
	}
	return false
}

func (o *Order) expired(now time.Time) bool {
	return !o.Request.Expiration.IsZero() && !now.Before(o.Request.Expiration)
}
