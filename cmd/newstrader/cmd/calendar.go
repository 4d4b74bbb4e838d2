package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/newstrader/calendar"
	"github.com/rustyeddy/newstrader/news"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Fetch and inspect the weekly news calendar",
	Long: `Manage the weekly economic calendar files.

Subcommands:
  fetch    - Download this week's calendar and store the processed events
  show     - Print a week's events as a table
  process  - Run a raw feed file through the event classifier

Examples:
  newstrader calendar fetch
  newstrader calendar show --date 2025-03-12
  newstrader calendar process ff_calendar_thisweek.json`,
}

var calendarFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and store this week's calendar",
	Args:  cobra.NoArgs,
	RunE:  runCalendarFetch,
}

var calendarShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a week's events",
	Args:  cobra.NoArgs,
	RunE:  runCalendarShow,
}

var calendarProcessCmd = &cobra.Command{
	Use:   "process <raw.json>",
	Short: "Classify a raw feed file and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarProcess,
}

var (
	calendarDate string
	calendarOut  string
)

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.AddCommand(calendarFetchCmd)
	calendarCmd.AddCommand(calendarShowCmd)
	calendarCmd.AddCommand(calendarProcessCmd)

	calendarShowCmd.Flags().StringVar(&calendarDate, "date", "", "any day of the week to show (YYYY-MM-DD, default today)")
	calendarProcessCmd.Flags().StringVarP(&calendarOut, "output", "o", "", "also write the processed events as JSON")
}

func runCalendarFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	store := calendar.NewStore(cfg.Calendar.DataDir, cfg.Calendar.PrettyDir)
	now := time.Now().UTC()
	events, err := calendar.Refresh(cmd.Context(), calendar.NewClient(cfg.Calendar.URL, log), store, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Stored %d events: %s\n", len(events), store.Path(now))
	return nil
}

func runCalendarShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	day := time.Now().UTC()
	if calendarDate != "" {
		day, err = time.Parse("2006-01-02", calendarDate)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
	}
	events, err := calendar.NewStore(cfg.Calendar.DataDir, "").LoadWeek(day)
	if err != nil {
		return err
	}
	return calendar.WritePretty(cmd.OutOrStdout(), events)
}

func runCalendarProcess(cmd *cobra.Command, args []string) error {
	raw, err := calendar.Load(args[0])
	if err != nil {
		return err
	}
	events := news.Process(raw)
	if calendarOut != "" {
		if err := calendar.Save(calendarOut, events); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %d of %d events to %s\n", len(events), len(raw), calendarOut)
	}
	return calendar.WritePretty(cmd.OutOrStdout(), events)
}
