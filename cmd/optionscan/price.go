package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/traderlab/optionscan/internal/pricing"
)

func priceCmd() *cobra.Command {
	var (
		symbol     string
		spot       float64
		strike     float64
		days       int
		optionType string
		volatility float64
		riskFree   float64
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a single option contract",
		Long: `Price a single option contract with the Black-Scholes model.

Volatility and risk-free rate fall back to 25% and 5% when not given.

Examples:
  # ATM call, 30 days out
  optionscan price --symbol AAPL --spot 190 --strike 190 --days 30 --type call

  # Put with explicit volatility
  optionscan price --symbol SPY --spot 520 --strike 500 --days 45 --type put --vol 0.18`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &pricing.QuoteRequest{
				Symbol:       symbol,
				SpotPrice:    spot,
				StrikePrice:  strike,
				DaysToExpiry: days,
				OptionType:   pricing.OptionType(optionType),
			}
			if cmd.Flags().Changed("vol") {
				req.Volatility = &volatility
			}
			if cmd.Flags().Changed("rate") {
				req.RiskFreeRate = &riskFree
			}

			quote, err := pricing.Price(req)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Price", "Delta", "Gamma", "Theta", "Vega", "Rho"})
			table.Append([]string{
				fmt.Sprintf("%.2f", quote.Price),
				fmt.Sprintf("%.3f", quote.Delta),
				fmt.Sprintf("%.4f", quote.Gamma),
				fmt.Sprintf("%.2f", quote.Theta),
				fmt.Sprintf("%.2f", quote.Vega),
				fmt.Sprintf("%.2f", quote.Rho),
			})
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "ticker symbol (required)")
	cmd.Flags().Float64Var(&spot, "spot", 0, "current stock price (required)")
	cmd.Flags().Float64Var(&strike, "strike", 0, "strike price (required)")
	cmd.Flags().IntVar(&days, "days", 0, "calendar days to expiry (required)")
	cmd.Flags().StringVar(&optionType, "type", "call", "option type: call or put")
	cmd.Flags().Float64Var(&volatility, "vol", 0, "annualized volatility as a decimal")
	cmd.Flags().Float64Var(&riskFree, "rate", 0, "annualized risk-free rate as a decimal")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strike")
	_ = cmd.MarkFlagRequired("days")

	return cmd
}

func moveCmd() *cobra.Command {
	var (
		spot       float64
		volatility float64
		days       int
	)

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Compute the expected one-sigma price move",
		RunE: func(cmd *cobra.Command, args []string) error {
			move, err := pricing.ComputeExpectedMove(spot, volatility, days)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Move", "Move %", "Lower", "Upper"})
			table.Append([]string{
				fmt.Sprintf("%.2f", move.Move),
				fmt.Sprintf("%.2f%%", move.Percent),
				fmt.Sprintf("%.2f", move.LowerBound),
				fmt.Sprintf("%.2f", move.UpperBound),
			})
			table.Render()
			return nil
		},
	}

	cmd.Flags().Float64Var(&spot, "spot", 0, "current stock price (required)")
	cmd.Flags().Float64Var(&volatility, "vol", 0, "annualized volatility as a decimal (required)")
	cmd.Flags().IntVar(&days, "days", 30, "calendar days in the horizon")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("vol")

	return cmd
}
