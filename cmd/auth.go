package cmd

import (
	"strings"
	"time"

	"github.com/phynance/phyn/pkg/clierr"
	"github.com/spf13/cobra"
)

// authCmd groups commands that inspect the local session.
func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect the stored session",
	}
	cmd.AddCommand(authStatusCmd())
	return cmd
}

// authStatusCmd shows what is stored locally without contacting the API.
func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored credentials and cached profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			st, err := newAuthService(api).Status(cmd.Context())
			if err != nil {
				return clierr.New(clierr.Internal, "Failed to read the stored credentials", err)
			}
			if !st.LoggedIn {
				cmd.Println("Not logged in. Use `phyn login` to start a session.")
				return nil
			}

			table := newKeyValueTable(cmd.OutOrStdout())
			table.Append([]string{"API", api.BaseURL()})
			if st.Profile != nil {
				table.Append([]string{"User", st.Profile.Username})
				table.Append([]string{"Roles", strings.Join(st.Profile.RoleList(), ", ")})
			}
			table.Append([]string{"Access token", accessTokenState(st.Expired, st.ExpiringSoon, st.ExpiresAt)})
			refresh := "missing"
			if st.HasRefreshToken {
				refresh = "present"
			}
			table.Append([]string{"Refresh token", refresh})
			table.Render()
			return nil
		},
	}
}

func accessTokenState(expired, expiringSoon bool, expiresAt time.Time) string {
	switch {
	case expiresAt.IsZero():
		return "present (expiry unknown)"
	case expired:
		return "expired at " + expiresAt.Local().Format(time.RFC1123) + " (renewed on next request)"
	case expiringSoon:
		return "expires soon, at " + expiresAt.Local().Format(time.RFC1123)
	default:
		return "valid until " + expiresAt.Local().Format(time.RFC1123)
	}
}
