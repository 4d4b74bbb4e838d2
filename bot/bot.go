// Package bot is the polling process driver: once a minute it reads this
// week's news calendar and fires a strategy for every high-impact release
// that entered its trigger window.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/newstrader/calendar"
	"github.com/rustyeddy/newstrader/news"
	"github.com/rustyeddy/newstrader/strategy"
)

// Options tune the loop. Zero values take the defaults.
type Options struct {
	Interval      time.Duration
	TriggerDelay  time.Duration
	TradeWeekends bool
	// Refresh is when the next week's calendar is fetched (UTC).
	RefreshDay    time.Weekday
	RefreshHour   int
	RefreshMinute int
}

// DefaultOptions polls every minute and refreshes Sunday 20:30 UTC.
func DefaultOptions() Options {
	return Options{
		Interval:      time.Minute,
		TriggerDelay:  news.DefaultTriggerDelay,
		RefreshDay:    time.Sunday,
		RefreshHour:   20,
		RefreshMinute: 30,
	}
}

// Bot ties the calendar to a Trader.
type Bot struct {
	Store   *calendar.Store
	Fetcher *calendar.Client
	Trader  Trader
	// Recover, when set, runs once at start and returns monitors to resume.
	Recover func(ctx context.Context) ([]*strategy.Monitor, error)
	Options Options

	log         zerolog.Logger
	now         func() time.Time
	lastRefresh time.Time
}

func New(store *calendar.Store, fetcher *calendar.Client, trader Trader, opts Options, log zerolog.Logger) *Bot {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.TriggerDelay <= 0 {
		opts.TriggerDelay = def.TriggerDelay
	}
	return &Bot{
		Store:   store,
		Fetcher: fetcher,
		Trader:  trader,
		Options: opts,
		log:     log.With().Str("component", "bot").Logger(),
		now:     time.Now,
	}
}

// Report summarizes one tick.
type Report struct {
	Refreshed bool
	Skipped   bool // weekend
	Triggered []string
	Traded    []string
	Failed    []string
	Monitors  []*strategy.Monitor
}

// Run polls until ctx is cancelled, then waits for every monitor to stop.
func (b *Bot) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	start := func(mons []*strategy.Monitor) {
		for _, m := range mons {
			m := m
			g.Go(func() error {
				res := m.Run(gctx)
				b.log.Info().
					Str("run", res.Run.ID).
					Str("state", string(res.Run.State)).
					AnErr("stop", res.Err).
					Msg("monitor exited")
				return nil
			})
		}
	}

	if b.Recover != nil {
		mons, err := b.Recover(ctx)
		if err != nil {
			b.log.Error().Err(err).Msg("recover runs")
		}
		b.log.Info().Int("monitors", len(mons)).Msg("recovered")
		start(mons)
	}

	b.log.Info().
		Dur("interval", b.Options.Interval).
		Dur("trigger_delay", b.Options.TriggerDelay).
		Bool("trade_weekends", b.Options.TradeWeekends).
		Msg("bot started")

	ticker := time.NewTicker(b.Options.Interval)
	defer ticker.Stop()
	for {
		start(b.Tick(ctx, b.now().UTC()).Monitors)

		select {
		case <-ctx.Done():
			b.log.Info().Msg("bot stopping")
			if err := g.Wait(); err != nil {
				return err
			}
			return nil
		case <-ticker.C:
		}
	}
}

// Trading reports whether orders may be placed at now.
func (b *Bot) Trading(now time.Time) bool {
	if b.Options.TradeWeekends {
		return true
	}
	switch now.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// Tick runs one iteration at now. Panics are logged, never propagated.
func (b *Bot) Tick(ctx context.Context, now time.Time) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("tick panicked")
		}
	}()

	rep.Refreshed = b.maybeRefresh(ctx, now)

	if !b.Trading(now) {
		rep.Skipped = true
		return rep
	}

	events, err := b.Store.LoadWeek(now)
	if err != nil {
		if errors.Is(err, calendar.ErrNoWeekFile) {
			b.log.Warn().Str("file", b.Store.Path(now)).Msg("no calendar for this week")
		} else {
			b.log.Error().Err(err).Msg("load calendar")
		}
		return rep
	}

	today := news.Today(events, now, b.Options.TriggerDelay+time.Minute)
	b.log.Debug().Int("today", len(today)).Msg("tick")

	for _, e := range today {
		if !news.ShouldTrigger(e, now, b.Options.TriggerDelay) {
			continue
		}
		rep.Triggered = append(rep.Triggered, e.Title)
		b.log.Info().
			Str("title", e.Title).
			Str("country", e.Country).
			Str("impact", string(e.Impact)).
			Time("date_utc", *e.UTC).
			Msg("news trigger")

		if e.Tradeable() {
			mon, err := b.trade(ctx, e)
			if err != nil {
				rep.Failed = append(rep.Failed, e.Title)
				b.log.Warn().Err(err).Str("title", e.Title).Msg("strategy not opened")
			} else {
				rep.Traded = append(rep.Traded, e.Title)
			}
			if mon != nil {
				rep.Monitors = append(rep.Monitors, mon)
			}
		}

		if err := b.Store.MarkProcessed(now, e.Title, now); err != nil {
			b.log.Error().Err(err).Str("title", e.Title).Msg("mark processed")
		}
	}
	return rep
}

// trade isolates one event so a panic in it does not skip the others.
func (b *Bot) trade(ctx context.Context, e news.Event) (mon *strategy.Monitor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.Trader.Trade(ctx, e.Country, e.Label())
}

func (b *Bot) maybeRefresh(ctx context.Context, now time.Time) bool {
	if b.Fetcher == nil {
		return false
	}
	o := b.Options
	if now.Weekday() != o.RefreshDay || now.Hour() != o.RefreshHour || now.Minute() != o.RefreshMinute {
		return false
	}
	minute := now.Truncate(time.Minute)
	if minute.Equal(b.lastRefresh) {
		return false
	}
	b.lastRefresh = minute

	if _, err := calendar.Refresh(ctx, b.Fetcher, b.Store, now); err != nil {
		b.log.Error().Err(err).Msg("calendar refresh")
		return false
	}
	return true
}
