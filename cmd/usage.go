package cmd

import (
	"fmt"

	"github.com/phynance/phyn/pkg/clierr"
	"github.com/spf13/cobra"
)

// usageCmd shows the caller's rate-limit counters.
func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show API usage for the current hour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			u, err := api.UsageStats(cmd.Context())
			if err != nil {
				return clierr.FromAPI("Fetching usage statistics", err)
			}

			table := newKeyValueTable(cmd.OutOrStdout())
			table.Append([]string{"Role", u.Role})
			table.Append([]string{"API requests", fmt.Sprintf("%d / %d", u.APIRequestsThisHour, u.APIRequestsLimit)})
			table.Append([]string{"Calculations", fmt.Sprintf("%d / %d", u.CalculationsThisHour, u.CalculationsLimit)})
			table.Append([]string{"Data access", u.DataAccessLimit})
			table.Append([]string{"Symbols", fmt.Sprintf("%d", u.SymbolLimit)})
			table.Render()
			if u.Message != "" {
				cmd.Println(u.Message)
			}
			return nil
		},
	}
}
