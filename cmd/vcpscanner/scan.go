package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"VCPScanner/internal/model"
)

var (
	jsonOutput   bool
	periodFlag   string
	intervalFlag string
	paramFlags   model.ScanParameters
)

var scanCmd = &cobra.Command{
	Use:   "scan [SYMBOL...]",
	Short: "Scan symbols for VCP candidates",
	Long: `Scan the given symbols, or the configured watchlist when none are given,
and print the matches ranked by pattern score.

Example usage:
  vcpscanner scan                         # Scan the watchlist
  vcpscanner scan NVDA AAPL --json        # JSON output
  vcpscanner scan --min-price 20 --contraction-period 15`,
	RunE: runScan,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Classify and score a single symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var historicalCmd = &cobra.Command{
	Use:   "historical SYMBOL",
	Short: "Print the daily bar series for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorical,
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, analyzeCmd, historicalCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	}
	for _, c := range []*cobra.Command{analyzeCmd, historicalCmd} {
		c.Flags().StringVar(&periodFlag, "period", "", "History range, e.g. 6mo, 1y, 2y (default from config)")
		c.Flags().StringVar(&intervalFlag, "interval", "", "Bar interval: 1d, 1wk, 1mo (default from config)")
	}
	defaults := model.DefaultParameters()
	for _, c := range []*cobra.Command{scanCmd, analyzeCmd} {
		f := c.Flags()
		f.Float64Var(&paramFlags.MinVolume, "min-volume", defaults.MinVolume, "Minimum average volume")
		f.Float64Var(&paramFlags.MinPrice, "min-price", defaults.MinPrice, "Minimum last close")
		f.Float64Var(&paramFlags.MaxPrice, "max-price", defaults.MaxPrice, "Maximum last close")
		f.IntVar(&paramFlags.ContractionPeriod, "contraction-period", defaults.ContractionPeriod, "Rolling window length in bars")
		f.Float64Var(&paramFlags.VolumeThreshold, "volume-threshold", defaults.VolumeThreshold, "Tolerated relative volume growth")
	}
}

// scanParams overlays explicitly set flags on the configured defaults.
func scanParams(cmd *cobra.Command) model.ScanParameters {
	p := cfg.Scan.Defaults
	f := cmd.Flags()
	if f.Changed("min-volume") {
		p.MinVolume = paramFlags.MinVolume
	}
	if f.Changed("min-price") {
		p.MinPrice = paramFlags.MinPrice
	}
	if f.Changed("max-price") {
		p.MaxPrice = paramFlags.MaxPrice
	}
	if f.Changed("contraction-period") {
		p.ContractionPeriod = paramFlags.ContractionPeriod
	}
	if f.Changed("volume-threshold") {
		p.VolumeThreshold = paramFlags.VolumeThreshold
	}
	return p
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	symbols := args
	if len(symbols) == 0 {
		symbols = cfg.Scan.Symbols
	}
	report, err := d.scanner.Run(ctx, symbols, scanParams(cmd))
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(report)
	}
	printReport(report)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	a, err := d.scanner.Analyze(ctx, args[0], periodFlag, intervalFlag, scanParams(cmd))
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(a)
	}
	printAnalysis(a)
	return nil
}

func runHistorical(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	bars, err := d.scanner.Historical(ctx, args[0], periodFlag, intervalFlag)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(bars)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "DATE\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME\t")
	for _, b := range bars {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.0f\t\n",
			b.Time.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return w.Flush()
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(report *model.ScanReport) {
	header := color.New(color.Bold)
	header.Printf("VCP scan %s: %d scanned, %d matched, %d skipped in %s\n\n",
		report.ID[:8], report.Scanned, len(report.Results), len(report.Skipped), report.Duration.Round(time.Millisecond))

	if len(report.Results) == 0 {
		color.Yellow("No contraction candidates.")
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tSYMBOL\tPRICE\tVOLUME\tPERIOD\tSCORE")
		for i, r := range report.Results {
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%.0f\t%d\t%s\n",
				i+1, r.Symbol, r.Price, r.Volume, r.Contraction, scoreColor(r.Score))
		}
		w.Flush()
	}

	for _, s := range report.Skipped {
		color.Red("skipped %s (%s): %s", s.Symbol, s.Kind, s.Error)
	}
}

func printAnalysis(a *model.Analysis) {
	verdict := color.RedString("no VCP")
	if a.IsVCP {
		verdict = color.GreenString("VCP")
	}
	color.New(color.Bold).Printf("%s: ", a.Symbol)
	fmt.Println(verdict)
	fmt.Printf("  price   %.2f\n  volume  %.0f\n  rsi     %.1f\n", a.CurrentPrice, a.CurrentVolume, a.RSI)
	if a.Reason != model.RejectNone {
		fmt.Printf("  reason  %s\n", a.Reason)
	}
	if a.Breakdown != nil {
		for _, f := range a.Breakdown.Factors {
			fmt.Printf("  %-10s %.2f x %.2f = %.3f  %s\n", f.Name, f.RawScore, f.Weight, f.Weighted, f.Commentary)
		}
	}
	fmt.Printf("  score   %s\n", scoreColor(a.Score))
}

func scoreColor(score float64) string {
	s := fmt.Sprintf("%.3f", score)
	switch {
	case score >= 0.75:
		return color.GreenString(s)
	case score >= 0.5:
		return color.YellowString(s)
	default:
		return s
	}
}
