package oanda

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
)

// UnitsPerLot converts lots to OANDA units.
const UnitsPerLot = 100000

type priceBucket struct {
	Price string `json:"price"`
}

type apiPrice struct {
	Instrument string        `json:"instrument"`
	Time       time.Time     `json:"time"`
	Tradeable  bool          `json:"tradeable"`
	Bids       []priceBucket `json:"bids"`
	Asks       []priceBucket `json:"asks"`
}

type pricingResponse struct {
	Prices []apiPrice `json:"prices"`
}

// GetTick returns the top of book for instrument.
func (c *Client) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	var resp pricingResponse
	q := url.Values{"instruments": {Symbol(instrument)}}
	if err := c.do(ctx, http.MethodGet, c.accountPath("/pricing"), q, nil, &resp); err != nil {
		return market.Tick{}, fmt.Errorf("tick %s: %w: %v", instrument, broker.ErrNoData, err)
	}
	if len(resp.Prices) == 0 {
		return market.Tick{}, fmt.Errorf("tick %s: %w", instrument, broker.ErrNoData)
	}
	p := resp.Prices[0]
	if len(p.Bids) == 0 || len(p.Asks) == 0 {
		return market.Tick{}, fmt.Errorf("tick %s: empty book: %w", instrument, broker.ErrNoData)
	}
	bid, err := strconv.ParseFloat(p.Bids[0].Price, 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("tick %s bid: %w", instrument, err)
	}
	ask, err := strconv.ParseFloat(p.Asks[0].Price, 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("tick %s ask: %w", instrument, err)
	}
	return market.Tick{Instrument: instrument, Bid: bid, Ask: ask, Time: p.Time.UTC()}, nil
}

type apiInstrument struct {
	Name             string `json:"name"`
	DisplayPrecision int    `json:"displayPrecision"`
}

type instrumentsResponse struct {
	Instruments []apiInstrument `json:"instruments"`
}

// GetInstrument returns cached metadata, fetching it on first use.
func (c *Client) GetInstrument(ctx context.Context, instrument string) (market.InstrumentInfo, error) {
	c.mu.Lock()
	info, ok := c.instruments[instrument]
	c.mu.Unlock()
	if ok {
		return info, nil
	}

	var resp instrumentsResponse
	q := url.Values{"instruments": {Symbol(instrument)}}
	err := c.do(ctx, http.MethodGet, c.accountPath("/instruments"), q, nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
		return market.InstrumentInfo{}, fmt.Errorf("%s: %w", instrument, broker.ErrInstrumentNotFound)
	}
	if err != nil {
		return market.InstrumentInfo{}, fmt.Errorf("instrument %s: %w", instrument, err)
	}
	if len(resp.Instruments) == 0 {
		return market.InstrumentInfo{}, fmt.Errorf("%s: %w", instrument, broker.ErrInstrumentNotFound)
	}

	base, quote := market.SplitPair(instrument)
	info = market.InstrumentInfo{
		Name:          instrument,
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Decimals:      resp.Instruments[0].DisplayPrecision,
	}
	c.mu.Lock()
	c.instruments[instrument] = info
	c.mu.Unlock()
	return info, nil
}

type apiTrade struct {
	ID           string    `json:"id"`
	Instrument   string    `json:"instrument"`
	Price        string    `json:"price"`
	OpenTime     time.Time `json:"openTime"`
	CurrentUnits string    `json:"currentUnits"`
}

type tradesResponse struct {
	Trades []apiTrade `json:"trades"`
}

// GetOpenPositions lists open trades; each OANDA trade is one Position.
func (c *Client) GetOpenPositions(ctx context.Context, instrument string) ([]broker.Position, error) {
	var resp tradesResponse
	if err := c.do(ctx, http.MethodGet, c.accountPath("/openTrades"), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("open trades: %w", err)
	}

	var out []broker.Position
	for _, t := range resp.Trades {
		name := Instrument(t.Instrument)
		if instrument != "" && name != instrument {
			continue
		}
		units, err := strconv.ParseFloat(t.CurrentUnits, 64)
		if err != nil {
			return nil, fmt.Errorf("trade %s units: %w", t.ID, err)
		}
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("trade %s price: %w", t.ID, err)
		}
		dir := market.Buy
		if units < 0 {
			dir = market.Sell
		}
		out = append(out, broker.Position{
			Ticket:     t.ID,
			Instrument: name,
			Direction:  dir,
			Volume:     math.Abs(units) / UnitsPerLot,
			OpenPrice:  price,
			OpenTime:   t.OpenTime.UTC(),
		})
	}
	return out, nil
}
