package sim

import (
	"context"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
)

// Paper trades against the Engine with market data from a live feed. Every
// quote read from the feed is also applied to the Engine so resting orders
// and SL/TP react to it.
type Paper struct {
	Feed   broker.MarketAccess
	Engine *Engine
}

func NewPaper(feed broker.MarketAccess) *Paper {
	return &Paper{Feed: feed, Engine: NewEngine()}
}

var _ broker.MarketAccess = (*Paper)(nil)

func (p *Paper) GetCandles(ctx context.Context, instrument string, tf market.Timeframe, count int) ([]market.Candle, error) {
	return p.Feed.GetCandles(ctx, instrument, tf, count)
}

func (p *Paper) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	tick, err := p.Feed.GetTick(ctx, instrument)
	if err != nil {
		return market.Tick{}, err
	}
	p.Engine.UpdatePrice(tick)
	return tick, nil
}

// GetInstrument prefers the feed's metadata and teaches it to the Engine.
func (p *Paper) GetInstrument(ctx context.Context, instrument string) (market.InstrumentInfo, error) {
	info, err := p.Feed.GetInstrument(ctx, instrument)
	if err != nil {
		return market.InstrumentInfo{}, err
	}
	p.Engine.SetInstrument(info)
	return info, nil
}

func (p *Paper) GetOpenPositions(ctx context.Context, instrument string) ([]broker.Position, error) {
	return p.Engine.GetOpenPositions(ctx, instrument)
}

func (p *Paper) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*broker.OrderResult, error) {
	return p.Engine.SubmitOrder(ctx, req)
}

// Observe applies a streamed quote. It matches the callback signature of
// oanda.Client.StreamPrices.
func (p *Paper) Observe(tick market.Tick) error {
	p.Engine.UpdatePrice(tick)
	return nil
}
