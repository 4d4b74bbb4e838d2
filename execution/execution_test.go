package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/sim"
)

type memRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *memRecorder) RecordOutcome(_ context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

var now = time.Date(2025, 3, 12, 14, 35, 0, 0, time.UTC)

func setup(t *testing.T) (*sim.Engine, *Engine, *memRecorder) {
	t.Helper()
	s := sim.NewEngine()
	s.UpdatePrice(market.Tick{Instrument: "EURUSD", Bid: 1.10000, Ask: 1.10020, Time: now})
	rec := &memRecorder{}
	return s, New(s, rec, zerolog.Nop()), rec
}

func TestHalfLots(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want float64
	}{
		{1.0, 0.5},
		{0.1, 0.05},
		{0.15, 0.08},
		{0.03, 0.02},
		{0.02, 0.01},
		{0.01, 0.01},
		{0.33, 0.17},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HalfLots(tt.in), "%v", tt.in)
	}
}

func TestPlaceMarketSuccess(t *testing.T) {
	t.Parallel()
	s, e, rec := setup(t)

	out, err := e.PlaceMarket(context.Background(), MarketOrder{
		Instrument: "EURUSD", Direction: market.Buy, Lots: 0.1,
		StopLoss: 1.0990, TakeProfit: 1.1014, Label: "Core CPI m",
	})
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, broker.CodeDone, out.Code)
	assert.Equal(t, 1.10020, out.FilledPrice)
	assert.Equal(t, 0.1, out.FilledLots)
	assert.Empty(t, out.RetryOf)
	assert.Len(t, rec.outcomes, 1)

	subs := s.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, broker.Market, subs[0].Kind)
	assert.Equal(t, "Core CPI m", subs[0].Label)
}

func TestPlaceMarketMarginRetriesOnce(t *testing.T) {
	t.Parallel()

	for _, lots := range []float64{1.0, 0.15, 0.03, 0.01} {
		s, e, rec := setup(t)
		s.Script(broker.CodeInsufficientMargin, broker.CodeDone)

		out, err := e.PlaceMarket(context.Background(), MarketOrder{
			Instrument: "EURUSD", Direction: market.Sell, Lots: lots,
		})
		require.NoError(t, err)
		assert.True(t, out.OK)
		assert.Equal(t, HalfLots(lots), out.FilledLots)

		subs := s.Submissions()
		require.Len(t, subs, 2, "exactly one retry")
		assert.Equal(t, lots, subs[0].Lots)
		assert.Equal(t, HalfLots(lots), subs[1].Lots)

		require.Len(t, rec.outcomes, 2)
		assert.False(t, rec.outcomes[0].OK)
		assert.Equal(t, broker.CodeInsufficientMargin, rec.outcomes[0].Code)
		assert.Equal(t, rec.outcomes[0].ID, rec.outcomes[1].RetryOf)
	}
}

func TestPlaceMarketMarginTwiceGivesUp(t *testing.T) {
	t.Parallel()
	s, e, _ := setup(t)
	s.Script(broker.CodeInsufficientMargin, broker.CodeInsufficientMargin, broker.CodeDone)

	out, err := e.PlaceMarket(context.Background(), MarketOrder{Instrument: "EURUSD", Direction: market.Buy, Lots: 0.2})
	assert.ErrorIs(t, err, ErrInsufficientMargin)
	assert.False(t, out.OK)
	assert.Len(t, s.Submissions(), 2)
}

func TestPlaceMarketRejectedIsTerminal(t *testing.T) {
	t.Parallel()

	for _, code := range []broker.ResultCode{broker.CodeRejected, broker.CodeInvalidStops, broker.CodeRequote} {
		s, e, _ := setup(t)
		s.Script(code)

		out, err := e.PlaceMarket(context.Background(), MarketOrder{Instrument: "EURUSD", Direction: market.Buy, Lots: 0.2})
		assert.ErrorIs(t, err, ErrOrderRejected)
		assert.False(t, out.OK)
		assert.Equal(t, code, out.Code)
		assert.NotEmpty(t, out.Reason)
		assert.Len(t, s.Submissions(), 1, "no retry for %s", code)
	}
}

func TestPlaceMarketNoAnswer(t *testing.T) {
	t.Parallel()
	s, e, _ := setup(t)
	s.ScriptNoAnswer()

	out, err := e.PlaceMarket(context.Background(), MarketOrder{Instrument: "EURUSD", Direction: market.Buy, Lots: 0.2})
	assert.ErrorIs(t, err, ErrOrderRejected)
	assert.False(t, out.OK)
	assert.Contains(t, out.Reason, "no answer")
	assert.Len(t, s.Submissions(), 1)
}

func TestPlaceMarketNoQuote(t *testing.T) {
	t.Parallel()
	s, e, rec := setup(t)

	out, err := e.PlaceMarket(context.Background(), MarketOrder{Instrument: "GBPUSD", Direction: market.Buy, Lots: 0.2})
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.False(t, out.OK)
	assert.Empty(t, s.Submissions())
	assert.Len(t, rec.outcomes, 1)
}

func TestPlacePending(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		dir   market.Direction
		price float64
		want  broker.OrderKind
	}{
		{"buy grid below", market.Buy, 1.09820, broker.BuyLimit},
		{"buy breakout above", market.Buy, 1.10300, broker.BuyStop},
		{"sell hedge below", market.Sell, 1.09500, broker.SellStop},
		{"sell grid above", market.Sell, 1.10200, broker.SellLimit},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, e, _ := setup(t)

			out, err := e.PlacePending(context.Background(), PendingOrder{
				MarketOrder: MarketOrder{Instrument: "EURUSD", Direction: tt.dir, Lots: 0.1, Label: "grid"},
				Price:       tt.price,
			})
			require.NoError(t, err)
			assert.True(t, out.OK)

			subs := s.Submissions()
			require.Len(t, subs, 1)
			assert.Equal(t, tt.want, subs[0].Kind)
			assert.Equal(t, now.Add(30*time.Minute), subs[0].Expiration)
			assert.Len(t, s.PendingOrders(), 1)
		})
	}
}

func TestPlacePendingMarginRetry(t *testing.T) {
	t.Parallel()
	s, e, _ := setup(t)
	s.Script(broker.CodeInsufficientMargin)

	out, err := e.PlacePending(context.Background(), PendingOrder{
		MarketOrder: MarketOrder{Instrument: "EURUSD", Direction: market.Buy, Lots: 0.1},
		Price:       1.0980,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.05, out.FilledLots)
	subs := s.Submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, subs[0].Kind, subs[1].Kind)
	assert.Equal(t, subs[0].Price, subs[1].Price)
}

func TestCloseAll(t *testing.T) {
	t.Parallel()
	s, e, _ := setup(t)
	a := s.OpenPosition("EURUSD", market.Buy, 0.1, 1.0990)
	b := s.OpenPosition("EURUSD", market.Sell, 0.2, 1.1010)
	s.OpenPosition("GBPUSD", market.Buy, 0.1, 1.2700)

	report, err := e.CloseAll(context.Background(), "EURUSD", "close")
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.ElementsMatch(t, []string{a, b}, report.Closed)

	open, err := s.GetOpenPositions(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "GBPUSD", open[0].Instrument)

	for _, sub := range s.Submissions() {
		if sub.Position == a {
			assert.Equal(t, market.Sell, sub.Direction)
			assert.Equal(t, 0.1, sub.Lots)
		}
		if sub.Position == b {
			assert.Equal(t, market.Buy, sub.Direction)
			assert.Equal(t, 0.2, sub.Lots)
		}
	}
}

func TestCloseAllIsBestEffort(t *testing.T) {
	t.Parallel()
	s, e, _ := setup(t)
	s.OpenPosition("EURUSD", market.Buy, 0.1, 1.0990)
	s.OpenPosition("EURUSD", market.Buy, 0.1, 1.0995)
	s.OpenPosition("EURUSD", market.Buy, 0.1, 1.1000)
	s.Script(broker.CodeRejected)

	report, err := e.CloseAll(context.Background(), "EURUSD", "close")
	assert.ErrorIs(t, err, ErrPartialClose)
	assert.ErrorIs(t, err, ErrOrderRejected)
	assert.False(t, report.OK())
	assert.Len(t, report.Failed, 1)
	assert.Len(t, report.Closed, 2)
	assert.Len(t, s.Submissions(), 3)
}

func TestCloseAllNoQuote(t *testing.T) {
	t.Parallel()
	s, e, _ := setup(t)
	s.OpenPosition("USDJPY", market.Buy, 0.1, 150.0)

	report, err := e.CloseAll(context.Background(), "USDJPY", "close")
	assert.ErrorIs(t, err, ErrPartialClose)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	require.Len(t, report.Failed, 1)
	assert.Empty(t, s.Submissions())
}
