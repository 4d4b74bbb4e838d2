package oanda

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/newstrader/market"
)

type streamMsg struct {
	Type       string        `json:"type"`
	Time       time.Time     `json:"time"`
	Instrument string        `json:"instrument"`
	Bids       []priceBucket `json:"bids"`
	Asks       []priceBucket `json:"asks"`
}

// StreamURL maps a REST base URL to its streaming host.
func StreamURL(baseURL string) string {
	return strings.Replace(baseURL, "://api-", "://stream-", 1)
}

// StreamPrices follows the pricing stream for instruments and calls fn for
// every price message. Heartbeats are skipped. It returns when ctx is done,
// the stream ends or fn returns an error.
func (c *Client) StreamPrices(ctx context.Context, instruments []string, fn func(market.Tick) error) error {
	if len(instruments) == 0 {
		return fmt.Errorf("oanda: missing instruments")
	}
	symbols := make([]string, len(instruments))
	for i, in := range instruments {
		symbols[i] = Symbol(in)
	}

	u := StreamURL(c.baseURL) + c.accountPath("/pricing/stream") +
		"?" + url.Values{"instruments": {strings.Join(symbols, ",")}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept-Datetime-Format", "RFC3339")

	// The stream stays open, so no client timeout.
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("open pricing stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &APIError{Status: resp.StatusCode, body: b}
	}
	c.log.Info().Strs("instruments", instruments).Msg("pricing stream open")

	sc := bufio.NewScanner(resp.Body)
	// OANDA stream messages can be long; bump max token
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var msg streamMsg
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return fmt.Errorf("oanda: bad stream line %q: %w", trimForErr(line), err)
		}
		if !strings.EqualFold(msg.Type, "PRICE") || len(msg.Bids) == 0 || len(msg.Asks) == 0 {
			continue
		}
		bid, err := strconv.ParseFloat(msg.Bids[0].Price, 64)
		if err != nil {
			return fmt.Errorf("stream %s bid: %w", msg.Instrument, err)
		}
		ask, err := strconv.ParseFloat(msg.Asks[0].Price, 64)
		if err != nil {
			return fmt.Errorf("stream %s ask: %w", msg.Instrument, err)
		}
		t := msg.Time.UTC()
		if t.IsZero() {
			t = time.Now().UTC()
		}
		if err := fn(market.Tick{Instrument: Instrument(msg.Instrument), Bid: bid, Ask: ask, Time: t}); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return sc.Err()
}

func trimForErr(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
