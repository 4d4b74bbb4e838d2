// Package oanda adapts the OANDA v3 REST API to broker.MarketAccess.
package oanda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/newstrader/market"
)

const (
	// PracticeURL is the URL for OANDA's practice/demo environment
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is the URL for OANDA's live trading environment
	LiveURL = "https://api-fxtrade.oanda.com"
)

// RequestsPerSecond stays well under OANDA's per-connection limit.
const RequestsPerSecond = 20

// Client represents an OANDA API client bound to one account
type Client struct {
	baseURL    string
	token      string
	account    string
	httpClient *http.Client
	// streamClient has no timeout; the pricing stream stays open.
	streamClient *http.Client
	limiter      *rate.Limiter
	log          zerolog.Logger

	mu          sync.Mutex
	instruments map[string]market.InstrumentInfo
}

// NewClient creates a new OANDA API client
func NewClient(token, account string, practice bool, log zerolog.Logger) *Client {
	baseURL := LiveURL
	if practice {
		baseURL = PracticeURL
	}
	return newClient(baseURL, token, account, log)
}

func newClient(baseURL, token, account string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		account: account,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(rate.Limit(RequestsPerSecond), 5),
		log:          log.With().Str("component", "oanda").Logger(),
		instruments:  make(map[string]market.InstrumentInfo),
	}
}

// BaseURL resolves an environment name.
func BaseURL(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "practice", "demo":
		return PracticeURL, nil
	case "live", "trade":
		return LiveURL, nil
	default:
		return "", fmt.Errorf("unknown OANDA env %q (want practice|live)", env)
	}
}

// Symbol converts "EURUSD" to OANDA's "EUR_USD".
func Symbol(instrument string) string {
	base, quote := market.SplitPair(instrument)
	if quote == "" {
		return instrument
	}
	return base + "_" + quote
}

// Instrument converts "EUR_USD" back to "EURUSD".
func Instrument(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(symbol), "_", "")
}

// APIError is a non-2xx answer.
type APIError struct {
	Status       int
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	RejectReason string `json:"rejectReason"`
	body         []byte
}

func (e *APIError) Error() string {
	msg := e.ErrorMessage
	if msg == "" {
		msg = strings.TrimSpace(string(e.body))
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, msg)
}

// do sends one request and decodes a 2xx body into out. Non-2xx answers
// come back as *APIError with the body also decoded into out, since order
// rejections carry transactions.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	apiURL := c.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept-Datetime-Format", "RFC3339")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, body: data}
		_ = json.Unmarshal(data, apiErr)
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) accountPath(format string, args ...any) string {
	return "/v3/accounts/" + url.PathEscape(c.account) + fmt.Sprintf(format, args...)
}
