package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/newstrader/market"
	"github.com/rustyeddy/newstrader/risk"
)

var candlesCmd = &cobra.Command{
	Use:   "candles <instrument>",
	Short: "Download recent candles as CSV",
	Long: `Fetch the most recent completed candles from the configured broker and
write them as CSV, followed on stderr by the volatility and stop distances the
risk calculator would derive from them.

Examples:
  newstrader candles EURUSD
  newstrader candles USDJPY -g M5 -n 500 -o usdjpy_m5.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runCandles,
}

var (
	candlesTF     string
	candlesCount  int
	candlesOutput string
)

func init() {
	rootCmd.AddCommand(candlesCmd)
	candlesCmd.Flags().StringVarP(&candlesTF, "granularity", "g", "M1", "timeframe (M1, M5, M15, M30, H1, H4, D1)")
	candlesCmd.Flags().IntVarP(&candlesCount, "count", "n", 100, "number of candles")
	candlesCmd.Flags().StringVarP(&candlesOutput, "output", "o", "", "output CSV file (default stdout)")
}

func runCandles(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	m, _, err := openBroker(cfg, log)
	if err != nil {
		return err
	}
	instrument := strings.ToUpper(args[0])
	tf := market.Timeframe(strings.ToUpper(candlesTF))
	if _, err := tf.Duration(); err != nil {
		return err
	}

	candles, err := m.GetCandles(cmd.Context(), instrument, tf, candlesCount)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if candlesOutput != "" {
		f, err := os.Create(candlesOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := writeCandlesCSV(w, candles); err != nil {
		return err
	}

	policy, err := risk.PolicyByName(cfg.Strategy.Policy)
	if err != nil {
		return err
	}
	calc := risk.NewCalculator(m, policy)
	calc.Timeframe = tf
	d, err := calc.Distances(cmd.Context(), instrument)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "distances: %v\n", err)
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: volatility %.1f pips, SL %.1f pips, TP %.1f pips (%s policy)\n",
		instrument, tf, d.VolatilityPips, d.StopPips, d.TakePips, policy.Name)
	return nil
}

func writeCandlesCSV(w io.Writer, candles []market.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, c := range candles {
		row := []string{c.Time.UTC().Format(time.RFC3339), f(c.Open), f(c.High), f(c.Low), f(c.Close), f(c.Volume)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
