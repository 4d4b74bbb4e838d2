package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/newstrader/bot"
	"github.com/rustyeddy/newstrader/calendar"
	"github.com/rustyeddy/newstrader/config"
	"github.com/rustyeddy/newstrader/risk"
	"github.com/rustyeddy/newstrader/selector"
	"github.com/rustyeddy/newstrader/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the news bot until interrupted",
	Long: `Poll the weekly calendar once a minute and trade every high-impact
release five minutes after it is published.

Runs left active by a previous process are resumed from the SQLite journal.

Example:
  newstrader run --config newstrader.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runMode string

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "override strategy.mode (pending, reactive, multi-timeframe, sandwich)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if runMode != "" {
		cfg.Strategy.Mode = runMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	m, stream, err := openBroker(cfg, log)
	if err != nil {
		return err
	}
	j, lister, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	policy, err := risk.PolicyByName(cfg.Strategy.Policy)
	if err != nil {
		return err
	}
	table, _ := selector.TableByName(cfg.Strategy.Table)

	trader, orch, err := bot.NewTrader(cfg.Strategy.Mode, bot.Deps{
		Market:  m,
		Journal: j,
		Runs:    j,
		Policy:  policy,
		Table:   table,
		Grid: strategy.GridConfig{
			Adaptive: cfg.Strategy.AdaptiveGrid,
			Fixed:    cfg.Strategy.Grid(),
		},
		MonitorInterval: cfg.Strategy.MonitorIntervalDuration(),
		Lots:            cfg.Strategy.Lots,
		Log:             log,
	})
	if err != nil {
		return err
	}

	opts, err := botOptions(cfg)
	if err != nil {
		return err
	}
	store := calendar.NewStore(cfg.Calendar.DataDir, cfg.Calendar.PrettyDir)
	b := bot.New(store, calendar.NewClient(cfg.Calendar.URL, log), trader, opts, log)
	if lister != nil {
		b.Recover = func(ctx context.Context) ([]*strategy.Monitor, error) {
			return orch.Recover(ctx, lister)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("broker", cfg.Broker.Kind).
		Str("mode", cfg.Strategy.Mode).
		Str("policy", policy.Name).
		Str("journal", cfg.Journal.Type).
		Msg("starting")

	g, gctx := errgroup.WithContext(ctx)
	if stream != nil {
		g.Go(func() error { return stream(gctx) })
	}
	g.Go(func() error {
		if err := b.Run(gctx); err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func botOptions(cfg *config.Config) (bot.Options, error) {
	day, err := config.ParseWeekday(cfg.Bot.RefreshWeekday)
	if err != nil {
		return bot.Options{}, err
	}
	hour, minute, err := cfg.Bot.RefreshClock()
	if err != nil {
		return bot.Options{}, err
	}
	return bot.Options{
		Interval:      cfg.Bot.TickIntervalDuration(),
		TriggerDelay:  cfg.Strategy.TriggerDelayDuration(),
		TradeWeekends: cfg.Bot.TradeWeekends,
		RefreshDay:    day,
		RefreshHour:   hour,
		RefreshMinute: minute,
	}, nil
}
