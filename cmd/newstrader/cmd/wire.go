package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/config"
	"github.com/rustyeddy/newstrader/journal"
	"github.com/rustyeddy/newstrader/oanda"
	"github.com/rustyeddy/newstrader/selector"
	"github.com/rustyeddy/newstrader/sim"
	"github.com/rustyeddy/newstrader/strategy"
)

// feed is a background task that keeps a broker's quotes current.
type feed func(ctx context.Context) error

// openBroker builds the configured market access. Paper mode also returns
// the pricing stream that drives its simulated book.
func openBroker(cfg *config.Config, log zerolog.Logger) (broker.MarketAccess, feed, error) {
	switch cfg.Broker.Kind {
	case "oanda", "paper":
		if err := cfg.Broker.Credentials(); err != nil {
			return nil, nil, err
		}
		c := oanda.NewClient(cfg.Broker.Token, cfg.Broker.Account, cfg.Broker.Practice(), log)
		if cfg.Broker.Kind == "oanda" {
			return c, nil, nil
		}
		p := sim.NewPaper(c)
		table, _ := selector.TableByName(cfg.Strategy.Table)
		return p, streamFeed(c, p, table.Instruments(), log), nil
	case "sim":
		log.Warn().Msg("simulated broker has no price feed; strategies will stop at data checks")
		return sim.NewEngine(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown broker %q", cfg.Broker.Kind)
}

// streamFeed reconnects the pricing stream until ctx is done.
func streamFeed(c *oanda.Client, p *sim.Paper, instruments []string, log zerolog.Logger) feed {
	return func(ctx context.Context) error {
		b := backoff.NewExponentialBackOff()
		b.MaxInterval = time.Minute
		b.MaxElapsedTime = 0
		op := func() error {
			err := c.StreamPrices(ctx, instruments, p.Observe)
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if err == nil {
				err = errors.New("pricing stream closed")
			}
			return err
		}
		notify := func(err error, wait time.Duration) {
			log.Warn().Err(err).Dur("retry_in", wait).Msg("pricing stream dropped")
		}
		err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

// openJournal returns the configured journal and, for SQLite, the lister
// used to resume runs after a restart.
func openJournal(cfg *config.Config) (journal.Journal, strategy.RunLister, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		return j, j, nil
	case "csv":
		j, err := journal.NewCSV(cfg.Journal.OutcomesFile, cfg.Journal.RunsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		return j, nil, nil
	}
	return journal.Nop{}, nil, nil
}
