package oanda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/newstrader/market"
)

func TestStreamURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://stream-fxpractice.oanda.com", StreamURL(PracticeURL))
	assert.Equal(t, "https://stream-fxtrade.oanda.com", StreamURL(LiveURL))
	assert.Equal(t, "http://127.0.0.1:8080", StreamURL("http://127.0.0.1:8080"))
}

func TestStreamPrices(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/accounts/101-001-1/pricing/stream", r.URL.Path)
		assert.Equal(t, "EUR_USD,USD_JPY", r.URL.Query().Get("instruments"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprintln(w, `{"type":"PRICE","time":"2025-03-12T12:35:00.000000000Z","instrument":"EUR_USD","bids":[{"price":"1.10000"}],"asks":[{"price":"1.10020"}]}`)
		fmt.Fprintln(w, `{"type":"HEARTBEAT","time":"2025-03-12T12:35:05.000000000Z"}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"type":"PRICE","time":"2025-03-12T12:35:06.000000000Z","instrument":"USD_JPY","bids":[{"price":"148.250"}],"asks":[{"price":"148.262"}]}`)
	})

	var ticks []market.Tick
	err := c.StreamPrices(context.Background(), []string{"EURUSD", "USDJPY"}, func(t market.Tick) error {
		ticks = append(ticks, t)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, "EURUSD", ticks[0].Instrument)
	assert.InDelta(t, 1.10000, ticks[0].Bid, 1e-9)
	assert.InDelta(t, 1.10020, ticks[0].Ask, 1e-9)
	assert.Equal(t, "USDJPY", ticks[1].Instrument)
	assert.InDelta(t, 148.262, ticks[1].Ask, 1e-9)
	assert.Equal(t, 6, ticks[1].Time.Second())
}

func TestStreamPricesErrors(t *testing.T) {
	t.Parallel()

	t.Run("no instruments", func(t *testing.T) {
		t.Parallel()
		c := newClient("http://unused", "tok", "acct", zerolog.Nop())
		assert.Error(t, c.StreamPrices(context.Background(), nil, func(market.Tick) error { return nil }))
	})

	t.Run("unauthorized", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"errorMessage":"Insufficient authorization to perform request."}`)
		})
		err := c.StreamPrices(context.Background(), []string{"EURUSD"}, func(market.Tick) error { return nil })
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	})

	t.Run("bad line", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"type":`)
		})
		err := c.StreamPrices(context.Background(), []string{"EURUSD"}, func(market.Tick) error { return nil })
		assert.ErrorContains(t, err, "bad stream line")
	})

	t.Run("callback stops stream", func(t *testing.T) {
		t.Parallel()
		stop := errors.New("enough")
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			for i := 0; i < 3; i++ {
				fmt.Fprintln(w, `{"type":"PRICE","instrument":"EUR_USD","bids":[{"price":"1.1"}],"asks":[{"price":"1.1002"}]}`)
			}
		})
		n := 0
		err := c.StreamPrices(context.Background(), []string{"EURUSD"}, func(market.Tick) error {
			n++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, n)
	})
}
