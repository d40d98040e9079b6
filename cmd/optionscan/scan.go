package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/traderlab/optionscan/internal/export"
	"github.com/traderlab/optionscan/internal/marketdata"
	"github.com/traderlab/optionscan/internal/notify"
	"github.com/traderlab/optionscan/internal/screener"
)

func scanCmd() *cobra.Command {
	var (
		modes         []string
		symbols       []string
		maxDelta      float64
		minPremium    float64
		minAnnualized float64
		exportDir     string
		seed          int64
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Screen the universe for option income opportunities",
		Long: `Screen a symbol universe for option opportunities, ranked by
annualized return.

Modes:
  covered_calls  near-term out-of-the-money calls against owned stock
  leaps          long-dated calls and puts

Examples:
  # Covered calls over the configured universe
  optionscan scan

  # Both modes over a custom universe, exporting snapshots
  optionscan scan --modes covered_calls,leaps --symbols AAPL,MSFT,F --export ./scans`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(symbols) == 0 {
				symbols = cfg.Screener.Symbols
			}

			criteria := screener.Criteria{
				MaxDelta:            maxDelta,
				MinPremium:          minPremium,
				MinAnnualizedReturn: minAnnualized,
				Symbols:             symbols,
			}

			var jobs []screener.Job
			for _, m := range modes {
				mode, err := screener.ParseMode(m)
				if err != nil {
					return err
				}
				jobs = append(jobs, screener.Job{Mode: mode, Criteria: criteria})
			}

			provider := marketdata.NewClient(
				cfg.Provider.BaseURL,
				cfg.Provider.APIKey,
				cfg.Provider.RatePerSecond,
				time.Duration(cfg.Provider.TimeoutSec)*time.Second,
				time.Duration(cfg.Provider.RetryDelaySec)*time.Second,
				cfg.Provider.RetryCount,
				logger,
			)

			var rng *rand.Rand
			if cmd.Flags().Changed("seed") {
				rng = rand.New(rand.NewSource(seed))
			}

			limiter := rate.NewLimiter(rate.Limit(cfg.Provider.RatePerSecond), cfg.Provider.RatePerSecond)
			scanner := screener.New(provider, limiter, screenerConfig(), rng, logger)
			runner := screener.NewRunner(scanner, cfg.Screener.Workers, logger)

			batch, results, err := runner.Execute(ctx, jobs)
			if err != nil {
				return err
			}

			notifier := notify.New(notify.LoadConfig(), logger)
			var writer *export.Writer
			if exportDir != "" {
				writer = export.NewWriter(exportDir)
			}

			for _, res := range results {
				if res.Err != nil {
					fmt.Fprintf(os.Stderr, "scan %s failed: %v\n", res.Job.Mode, res.Err)
					continue
				}

				renderReport(res.Report)

				if res.Report.Synthetic {
					if err := notifier.SendDegraded(ctx, res.Report); err != nil {
						logger.Warn("failed to send degraded-scan alert", zap.Error(err))
					}
				}

				if writer != nil {
					path, err := writer.WriteReport(res.Report)
					if err != nil {
						logger.Warn("failed to export snapshot", zap.Error(err))
					} else {
						fmt.Printf("snapshot written to %s\n", path)
					}
				}
			}

			fmt.Printf("\n%d scans: %d succeeded (%d synthetic), %d failed\n",
				batch.Total, batch.Succeeded, batch.Synthetic, batch.Failed)
			for _, e := range batch.Errors {
				fmt.Fprintf(os.Stderr, "  %s\n", e)
			}
			if batch.Failed > 0 {
				return fmt.Errorf("%d of %d scans failed", batch.Failed, batch.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&modes, "modes", []string{string(screener.ModeCoveredCalls)}, "screening modes to run")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbol universe (default: config universe)")
	cmd.Flags().Float64Var(&maxDelta, "max-delta", 0.40, "maximum absolute delta")
	cmd.Flags().Float64Var(&minPremium, "min-premium", 0.30, "minimum premium in dollars per share")
	cmd.Flags().Float64Var(&minAnnualized, "min-annualized", 0, "minimum annualized return percentage")
	cmd.Flags().StringVar(&exportDir, "export", "", "directory for compressed report snapshots")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for synthetic fallback data")

	return cmd
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show SNAPSHOT",
		Short: "Display a previously exported scan snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := export.ReadReport(args[0])
			if err != nil {
				return err
			}
			renderReport(report)
			return nil
		},
	}
	return cmd
}

func screenerConfig() screener.Config {
	sc := screener.DefaultConfig()
	sc.ResultCap = cfg.Screener.ResultCap
	sc.PriceCeiling = cfg.Screener.PriceCeiling
	sc.PremiumFloor = cfg.Screener.PremiumFloor
	sc.NearTermMinDays = cfg.Screener.NearTermMinDays
	sc.NearTermMaxDays = cfg.Screener.NearTermMaxDays
	sc.LongDatedMinDays = cfg.Screener.LongDatedMinDays
	sc.RiskFreeRate = cfg.Screener.RiskFreeRate
	return sc
}

func renderReport(report *screener.Report) {
	source := "live"
	if report.Synthetic {
		source = "synthetic"
	}
	fmt.Printf("\n%s scan %s (%s, %d symbols, %s)\n",
		report.Mode, report.ScanID, source, report.Universe, report.Duration.Round(time.Millisecond))
	if len(report.Skipped) > 0 {
		fmt.Printf("skipped: %v\n", report.Skipped)
	}
	if len(report.Results) == 0 {
		fmt.Println("no opportunities matched the criteria")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Symbol", "Type", "Strike", "Expiry", "DTE", "Premium", "Delta", "Ann. Return", "Breakeven"})
	for _, r := range report.Results {
		table.Append([]string{
			r.Symbol,
			string(r.OptionType),
			fmt.Sprintf("%.2f", r.StrikePrice),
			r.ExpirationDate,
			fmt.Sprintf("%d", r.DaysToExpiry),
			fmt.Sprintf("%.2f", r.Premium),
			fmt.Sprintf("%.3f", r.Delta),
			fmt.Sprintf("%.2f%%", r.AnnualizedReturn),
			fmt.Sprintf("%.2f", r.Breakeven),
		})
	}
	table.Render()
}
