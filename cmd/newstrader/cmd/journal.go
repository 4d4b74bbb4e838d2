package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/newstrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query strategy runs and order attempts",
	Long: `Query and display journal records from the SQLite database.

Subcommands:
  runs  - List recent runs, or only active ones
  show  - Print one run and its orders as an Org section

Examples:
  newstrader journal runs --active
  newstrader journal show 01JP4Z3G6W8N7A2K5R9QY0XB1C`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List strategy runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its order attempts",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var (
	journalDBPath string
	journalActive bool
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default journal.db_path)")
	journalRunsCmd.Flags().BoolVar(&journalActive, "active", false, "only runs that are still active")
	journalRunsCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "maximum runs to list")
}

func openSQLite() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	var runs []journal.RunRecord
	if journalActive {
		runs, err = j.ActiveRuns(cmd.Context())
	} else {
		runs, err = j.RecentRuns(cmd.Context(), journalLimit)
	}
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tINSTRUMENT\tDIR\tLABEL\tSTATE\tREASON")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Created.UTC().Format("2006-01-02 15:04"), r.Instrument,
			dash(r.Direction), r.Label, r.State, dash(r.Reason))
	}
	return w.Flush()
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	r, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	outcomes, err := j.ListOutcomesByLabel(cmd.Context(), r.Label)
	if err != nil {
		return fmt.Errorf("query outcomes: %w", err)
	}
	s, err := journal.FormatRunOrg(r, outcomes)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), s)
	return nil
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
