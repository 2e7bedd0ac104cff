package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/crossover/internal/alert"
	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/core"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backtestSymbol string
	backtestFrom   string
	backtestTo     string
	backtestFast   int
	backtestSlow   int
	backtestSource string
	backtestJSON   bool
	backtestSave   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run an SMA crossover backtest",
	Long: `Fetch daily closes for a symbol and backtest the SMA crossover strategy.
Flags left unset take their values from the backtest section of the config.`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (default from config)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (default from config)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (default from config)")
	backtestCmd.Flags().IntVar(&backtestFast, "fast", 0, "Fast SMA window (default from config)")
	backtestCmd.Flags().IntVar(&backtestSlow, "slow", 0, "Slow SMA window (default from config)")
	backtestCmd.Flags().StringVar(&backtestSource, "source", "", "Price source: yahoo or csv (default from config)")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "Print the full result as JSON")
	backtestCmd.Flags().BoolVar(&backtestSave, "save", false, "Archive the result in the report store")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	d := cfg.Backtest
	symbol := pick(backtestSymbol, d.Symbol)
	sourceName := pick(backtestSource, d.Source)
	fast := pickInt(backtestFast, d.FastWindow)
	slow := pickInt(backtestSlow, d.SlowWindow)

	// Parse from date
	fromDate, err := time.Parse(core.DateLayout, pick(backtestFrom, d.Start))
	if err != nil {
		return fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}

	// Parse to date
	toDate, err := time.Parse(core.DateLayout, pick(backtestTo, d.End))
	if err != nil {
		return fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
	}

	sources := buildSources(cfg, log, nil)
	source, err := sources.MustGet(sourceName)
	if err != nil {
		return err
	}

	result, err := backtest.New(source, log, nil).Run(cmd.Context(), backtest.Request{
		Symbol:     symbol,
		Start:      fromDate,
		End:        toDate,
		FastWindow: fast,
		SlowWindow: slow,
	})
	if err != nil {
		return err
	}

	if backtestSave {
		reports, err := buildReports(cfg)
		if err != nil {
			return err
		}
		if reports == nil {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("--save needs storage.archive configured"))
		}
		result.ID = uuid.New().String()
		if err := reports.Save(cmd.Context(), result.ID, result); err != nil {
			return err
		}
		log.Info("report archived", zap.String("id", result.ID))
	}

	if backtestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(os.Stdout, result, alert.Check(cfg.Alerts.Rules, result))
	return nil
}

// printResult writes a human readable summary, stats, fired alerts and trade log.
func printResult(out io.Writer, r *backtest.Result, alerts []alert.Alert) {
	fmt.Fprintln(out, "=== SMA Crossover Backtest ===")
	fmt.Fprintf(out, "Symbol:   %s (%s)\n", r.Symbol, r.Source)
	fmt.Fprintf(out, "Period:   %s to %s\n", r.StartDate.Format(core.DateLayout), r.EndDate.Format(core.DateLayout))
	fmt.Fprintf(out, "Windows:  fast %d / slow %d\n", r.FastWindow, r.SlowWindow)
	if r.ID != "" {
		fmt.Fprintf(out, "Report:   %s\n", r.ID)
	}
	fmt.Fprintln(out)

	if r.Empty {
		fmt.Fprintln(out, "No data returned. Check the ticker or date range.")
		return
	}

	s := r.Stats
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Data points\t%d\t\n", len(r.Prices))
	fmt.Fprintf(w, "Enter signals\t%d\t\n", s.EnterCount)
	fmt.Fprintf(w, "Exit signals\t%d\t\n", s.ExitCount)
	fmt.Fprintf(w, "Cumulative return\t%.2f%%\t\n", s.CumulativeReturn*100)
	fmt.Fprintf(w, "Buy and hold\t%.2f%%\t\n", s.BuyAndHoldReturn*100)
	fmt.Fprintf(w, "Trades\t%d (%d won, %d lost)\t\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	fmt.Fprintf(w, "Win rate\t%.1f%%\t\n", s.WinRate)
	fmt.Fprintf(w, "Max drawdown\t%.2f%%\t\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "Sharpe ratio\t%.2f\t\n", s.SharpeRatio)
	fmt.Fprintf(w, "Exposure\t%.1f%%\t\n", s.ExposureRatio*100)
	w.Flush()
	fmt.Fprintln(out)

	if len(alerts) > 0 {
		fmt.Fprintln(out, "Alerts:")
		for _, a := range alerts {
			fmt.Fprintf(out, "  %s (value %.4f)\n", a.Message, a.Value)
		}
		fmt.Fprintln(out)
	}

	if len(r.TradeLog) == 0 {
		fmt.Fprintln(out, "No crossovers in range.")
		return
	}

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tACTION\tPRICE\t")
	fmt.Fprintln(w, "----\t------\t-----\t")
	for _, e := range r.TradeLog {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t\n", e.Date.Format(core.DateLayout), e.Action, e.Price)
	}
	w.Flush()
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func pickInt(flag, fallback int) int {
	if flag != 0 {
		return flag
	}
	return fallback
}
