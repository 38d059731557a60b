package cmd

import (
	"fmt"
	"strings"

	"github.com/phynance/phyn/pkg/clierr"
	"github.com/phynance/phyn/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// marketCmd groups the market data commands.
func marketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Show market data",
	}
	cmd.AddCommand(marketDataCmd(), marketSummaryCmd())
	return cmd
}

func marketDataCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "data SYMBOL",
		Short: "Show OHLCV bars for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := validation.ValidateSymbol(args[0])
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			api, err := newAPIClient()
			if err != nil {
				return err
			}

			log.Info().Str("symbol", symbol).Msg("Fetching market data")
			bars, err := api.MarketData(cmd.Context(), symbol)
			if err != nil {
				return clierr.FromAPI("Fetching market data for "+symbol, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), bars)
			}
			if len(bars) == 0 {
				cmd.Printf("No market data found for %s.\n", symbol)
				return nil
			}

			table := newTable(cmd.OutOrStdout(), "Date", "Open", "High", "Low", "Close", "Volume")
			for _, b := range bars {
				table.Append([]string{
					strings.SplitN(b.Timestamp, "T", 2)[0],
					formatFloat(b.Open),
					formatFloat(b.High),
					formatFloat(b.Low),
					formatFloat(b.Close),
					fmt.Sprintf("%d", b.Volume),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw reply as JSON")
	return cmd
}

func marketSummaryCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary SYMBOL",
		Short: "Show the 30-day summary of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := validation.ValidateSymbol(args[0])
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			s, err := api.MarketSummary(cmd.Context(), symbol)
			if err != nil {
				return clierr.FromAPI("Fetching the market summary for "+symbol, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), s)
			}

			table := newKeyValueTable(cmd.OutOrStdout())
			table.Append([]string{"Symbol", s.Symbol})
			table.Append([]string{"Current price", formatFloat(s.CurrentPrice)})
			table.Append([]string{"Change", formatFloat(s.Change) + " (" + formatPercent(s.ChangePercent) + ")"})
			table.Append([]string{"Period high", formatFloat(s.PeriodHigh)})
			table.Append([]string{"Period low", formatFloat(s.PeriodLow)})
			table.Append([]string{"Data points", fmt.Sprintf("%d", s.DataPoints)})
			table.Append([]string{"Range", s.DataRange})
			table.Render()
			if s.Message != "" {
				cmd.Println(s.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw reply as JSON")
	return cmd
}
