package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/newstrader/broker"
	"github.com/rustyeddy/newstrader/execution"
)

var closeCmd = &cobra.Command{
	Use:   "close <instrument>",
	Short: "Close open positions on an instrument",
	Long: `Close every open position on one instrument.

Each close is journaled like any other order attempt.

Example:
  newstrader close EURUSD`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

var closeLabel string

func init() {
	rootCmd.AddCommand(closeCmd)
	closeCmd.Flags().StringVarP(&closeLabel, "label", "l", "manual", "label recorded with the closing orders")
}

func runClose(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if cfg.Broker.Kind != "oanda" {
		return fmt.Errorf("close needs the oanda broker, not %q", cfg.Broker.Kind)
	}
	m, _, err := openBroker(cfg, log)
	if err != nil {
		return err
	}
	j, _, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	exec := execution.New(broker.Serialize(m), j, log)
	rep, err := exec.CloseAll(cmd.Context(), args[0], closeLabel)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Closed %d position(s) on %s\n", len(rep.Closed), args[0])
	for _, f := range rep.Failed {
		fmt.Fprintf(out, "✗ %s: %v\n", f.Ticket, f.Err)
	}
	return err
}
