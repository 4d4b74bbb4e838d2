package sim

import (
	"context"
	"testing"
	"time"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperTradesOnFeedPrices(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	feed := newEngine(t)
	feed.SetCandles("EURUSD", market.M1, []market.Candle{{Time: t0, Open: 1.0990, High: 1.1010, Low: 1.0985, Close: 1.1000}})
	p := NewPaper(feed)

	// Nothing quoted on the paper side until the feed is read.
	res, err := p.SubmitOrder(ctx, broker.OrderRequest{Instrument: "EURUSD", Direction: market.Buy, Kind: broker.Market, Lots: 0.01})
	require.NoError(t, err)
	assert.Equal(t, broker.CodeMarketClosed, res.Code)

	tick, err := p.GetTick(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.1002, tick.Ask)

	res, err = p.SubmitOrder(ctx, broker.OrderRequest{Instrument: "EURUSD", Direction: market.Buy, Kind: broker.Market, Lots: 0.01, StopLoss: 1.0990})
	require.NoError(t, err)
	assert.Equal(t, broker.CodeDone, res.Code)
	assert.Equal(t, 1.1002, res.FilledPrice)

	// Orders land on the paper engine, never on the feed.
	assert.Empty(t, feed.Trades())
	pos, err := p.GetOpenPositions(ctx, "EURUSD")
	require.NoError(t, err)
	require.Len(t, pos, 1)

	candles, err := p.GetCandles(ctx, "EURUSD", market.M1, 1)
	require.NoError(t, err)
	assert.Len(t, candles, 1)

	// A streamed quote through the stop closes the trade.
	require.NoError(t, p.Observe(quote(1.0985, 1.0987, t0.Add(time.Minute))))
	pos, err = p.GetOpenPositions(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Empty(t, pos)
}

func TestPaperInstrumentFromFeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	feed := NewEngine()
	feed.SetInstrument(market.InstrumentInfo{Name: "XAUUSD", BaseCurrency: "XAU", QuoteCurrency: "USD", Decimals: 2})
	p := NewPaper(feed)

	info, err := p.GetInstrument(ctx, "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Decimals)

	known, err := p.Engine.GetInstrument(ctx, "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, info, known)

	feed.RemoveInstrument("EURUSD")
	_, err = p.GetInstrument(ctx, "EURUSD")
	assert.ErrorIs(t, err, broker.ErrInstrumentNotFound)
}
