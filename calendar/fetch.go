package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/newstrader/news"
)

// FeedURL is the ForexFactory this-week calendar.
const FeedURL = "https://nfs.faireconomy.media/ff_calendar_thisweek.json"

// Client downloads the weekly calendar.
type Client struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger

	// MaxElapsed bounds retries of a failed download. Zero disables retries.
	MaxElapsed time.Duration
}

func NewClient(url string, log zerolog.Logger) *Client {
	if url == "" {
		url = FeedURL
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "calendar").Logger(),
		MaxElapsed: 2 * time.Minute,
	}
}

// Fetch downloads the raw, unprocessed records.
func (c *Client) Fetch(ctx context.Context) ([]news.Event, error) {
	var events []news.Event

	op := func() error {
		evs, err := c.fetchOnce(ctx)
		if err != nil {
			return err
		}
		events = evs
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if c.MaxElapsed > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = c.MaxElapsed
		b = eb
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Dur("retry_in", wait).Msg("calendar fetch failed")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) fetchOnce(ctx context.Context) ([]news.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("calendar feed error (status %d): %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var events []news.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode calendar: %w", err))
	}
	return events, nil
}

// Refresh downloads the current week, runs it through the classifier and
// stores the result for the week containing now.
func Refresh(ctx context.Context, c *Client, s *Store, now time.Time) ([]news.Event, error) {
	raw, err := c.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	events := news.Process(raw)
	if err := s.SaveWeek(now, events); err != nil {
		return nil, err
	}
	c.log.Info().
		Int("raw", len(raw)).
		Int("kept", len(events)).
		Str("file", s.Path(now)).
		Msg("calendar refreshed")
	return events, nil
}
