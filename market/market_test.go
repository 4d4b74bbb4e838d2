package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
	assert.Equal(t, None, None.Opposite())
	assert.Equal(t, 1.0, Buy.Sign())
	assert.Equal(t, -1.0, Sell.Sign())
	assert.Equal(t, 0.0, None.Sign())
	assert.Equal(t, "none", None.String())
	assert.False(t, None.Valid())

	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"buy", Buy, false},
		{" LONG ", Buy, false},
		{"Sell", Sell, false},
		{"short", Sell, false},
		{"", None, false},
		{"sideways", None, true},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCandleHelpers(t *testing.T) {
	t.Parallel()

	cs := []Candle{
		{Open: 1.0, High: 1.3, Low: 0.9, Close: 1.2},
		{Open: 1.2, High: 1.25, Low: 0.8, Close: 1.1},
		{Open: 1.1, High: 1.4, Low: 1.0, Close: 1.1},
	}
	assert.True(t, cs[0].Bullish())
	assert.True(t, cs[1].Bearish())
	assert.False(t, cs[2].Bullish() || cs[2].Bearish())
	assert.Equal(t, []float64{1.2, 1.1, 1.1}, Closes(cs))

	hi, lo, ok := Range(cs)
	require.True(t, ok)
	assert.Equal(t, 1.4, hi)
	assert.Equal(t, 0.8, lo)

	_, _, ok = Range(nil)
	assert.False(t, ok)

	assert.Len(t, Last(cs, 2), 2)
	assert.Equal(t, cs[1], Last(cs, 2)[0])
	assert.Len(t, Last(cs, 10), 3)
}

func TestInstrumentInfo(t *testing.T) {
	t.Parallel()

	eu := Instruments["EURUSD"]
	assert.Equal(t, "EUR", eu.BaseCurrency)
	assert.Equal(t, "USD", eu.QuoteCurrency)
	assert.Equal(t, 0.0001, eu.PipSize())
	assert.InDelta(t, 0.00001, eu.Point(), 1e-12)

	uj := Instruments["USDJPY"]
	assert.Equal(t, 0.01, uj.PipSize())
	uj.MinStopDistance = 50
	assert.InDelta(t, 0.05, uj.MinStopPrice(), 1e-12)

	base, quote := SplitPair("gbp_jpy")
	assert.Equal(t, "GBP", base)
	assert.Equal(t, "JPY", quote)
}

func TestTickStore(t *testing.T) {
	t.Parallel()

	ts := NewTickStore()
	_, err := ts.Get("EURUSD")
	assert.ErrorIs(t, err, ErrNoTick)

	tick := Tick{Instrument: "EURUSD", Bid: 1.1000, Ask: 1.1002, Time: time.Now()}
	ts.Set(tick)
	got, err := ts.Get("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.1002, got.PriceFor(Buy))
	assert.Equal(t, 1.1000, got.PriceFor(Sell))
	assert.InDelta(t, 1.1001, got.Mid(), 1e-12)
	assert.InDelta(t, 0.0002, got.Spread(), 1e-12)

	older := Tick{Instrument: "EURUSD", Bid: 1.0900, Ask: 1.0902, Time: tick.Time.Add(-time.Second)}
	assert.False(t, ts.Set(older))
	got, err = ts.Get("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.1000, got.Bid)

	assert.True(t, ts.Set(Tick{Instrument: "EURUSD", Bid: 1.1010, Ask: 1.1012, Time: tick.Time}))
}

func TestTimeframeDuration(t *testing.T) {
	t.Parallel()

	d, err := M5.Duration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	_, err = Timeframe("W9").Duration()
	assert.Error(t, err)
}
