package oanda

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/market"
)

// Granularity represents the time frame for candles
type Granularity string

const (
	S5  Granularity = "S5"
	M1  Granularity = "M1"
	M5  Granularity = "M5"
	M15 Granularity = "M15"
	M30 Granularity = "M30"
	H1  Granularity = "H1"
	H4  Granularity = "H4"
	D   Granularity = "D"
)

// PriceComponent represents the price component for candles
type PriceComponent string

const (
	MidPrice PriceComponent = "M"
	BidPrice PriceComponent = "B"
	AskPrice PriceComponent = "A"
)

// MaxCandles is the largest count OANDA accepts per request.
const MaxCandles = 5000

// granularity maps a Timeframe to OANDA's name for it.
func granularity(tf market.Timeframe) (Granularity, error) {
	switch tf {
	case market.M1:
		return M1, nil
	case market.M5:
		return M5, nil
	case market.M15:
		return M15, nil
	case market.M30:
		return M30, nil
	case market.H1:
		return H1, nil
	case market.H4:
		return H4, nil
	case market.D1:
		return D, nil
	}
	return "", fmt.Errorf("unsupported timeframe %q", tf)
}

// CandlesRequest represents parameters for fetching historical candles
type CandlesRequest struct {
	Instrument  string // OANDA symbol, e.g. "EUR_USD"
	Price       PriceComponent
	Granularity Granularity
	Count       int
	From        *time.Time
	To          *time.Time
}

type candleData struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type apiCandle struct {
	Complete bool       `json:"complete"`
	Volume   int        `json:"volume"`
	Time     string     `json:"time"`
	Mid      candleData `json:"mid,omitempty"`
	Bid      candleData `json:"bid,omitempty"`
	Ask      candleData `json:"ask,omitempty"`
}

type candlesResponse struct {
	Instrument  string      `json:"instrument"`
	Granularity string      `json:"granularity"`
	Candles     []apiCandle `json:"candles"`
}

// GetCandles returns the last count completed candles of instrument, oldest
// first.
func (c *Client) GetCandles(ctx context.Context, instrument string, tf market.Timeframe, count int) ([]market.Candle, error) {
	g, err := granularity(tf)
	if err != nil {
		return nil, err
	}
	// Ask for one extra so the forming candle can be dropped.
	n := count + 1
	if n > MaxCandles {
		n = MaxCandles
	}
	candles, err := c.FetchCandles(ctx, CandlesRequest{
		Instrument:  Symbol(instrument),
		Price:       MidPrice,
		Granularity: g,
		Count:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("candles %s %s: %w: %v", instrument, tf, broker.ErrNoData, err)
	}
	return market.Last(candles, count), nil
}

// FetchCandles fetches historical candles from OANDA
func (c *Client) FetchCandles(ctx context.Context, req CandlesRequest) ([]market.Candle, error) {
	if req.Instrument == "" {
		return nil, fmt.Errorf("instrument is required")
	}

	params := url.Values{}
	if req.Price == "" {
		req.Price = MidPrice
	}
	params.Set("price", string(req.Price))

	if req.Granularity == "" {
		req.Granularity = M1
	}
	params.Set("granularity", string(req.Granularity))

	if req.Count > 0 {
		if req.Count > MaxCandles {
			return nil, fmt.Errorf("count cannot exceed %d", MaxCandles)
		}
		params.Set("count", strconv.Itoa(req.Count))
	} else {
		if req.From != nil {
			params.Set("from", req.From.Format(time.RFC3339))
		}
		if req.To != nil {
			params.Set("to", req.To.Format(time.RFC3339))
		}
	}

	var apiResp candlesResponse
	path := "/v3/instruments/" + url.PathEscape(req.Instrument) + "/candles"
	if err := c.do(ctx, http.MethodGet, path, params, nil, &apiResp); err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(apiResp.Candles))
	for _, ac := range apiResp.Candles {
		if !ac.Complete {
			continue
		}

		t, err := time.Parse(time.RFC3339, ac.Time)
		if err != nil {
			return nil, fmt.Errorf("parse time %s: %w", ac.Time, err)
		}

		var priceData candleData
		switch req.Price {
		case BidPrice:
			priceData = ac.Bid
		case AskPrice:
			priceData = ac.Ask
		default:
			priceData = ac.Mid
		}

		var ohlc [4]float64
		for i, s := range []string{priceData.O, priceData.H, priceData.L, priceData.C} {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("parse price %q: %w", s, err)
			}
			ohlc[i] = v
		}

		candles = append(candles, market.Candle{
			Time:   t,
			Open:   ohlc[0],
			High:   ohlc[1],
			Low:    ohlc[2],
			Close:  ohlc[3],
			Volume: float64(ac.Volume),
		})
	}

	return candles, nil
}
