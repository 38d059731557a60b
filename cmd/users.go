package cmd

import (
	"fmt"
	"strings"

	"github.com/phynance/phyn/client"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/phynance/phyn/pkg/validation"
	"github.com/spf13/cobra"
)

// usersCmd groups the account administration commands. They need the ADMIN role.
func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and create accounts (admin only)",
	}
	cmd.AddCommand(usersListCmd(), usersCreateCmd())
	return cmd
}

func usersListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			users, err := api.ListUsers(cmd.Context())
			if err != nil {
				return clierr.FromAPI("Listing users", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), users)
			}
			if len(users) == 0 {
				cmd.Println("No users found.")
				return nil
			}
			table := newTable(cmd.OutOrStdout(), "ID", "Username", "Email", "Roles")
			for _, u := range users {
				table.Append([]string{fmt.Sprintf("%d", u.ID), u.Username, u.Email, strings.Join(u.Roles, ", ")})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON reply")
	return cmd
}

func usersCreateCmd() *cobra.Command {
	var u client.NewUser
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateNonEmptyString("username", u.Username); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := validation.ValidateNonEmptyString("email", u.Email); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			created, err := api.CreateUser(cmd.Context(), u)
			if err != nil {
				return clierr.FromAPI("Creating user", err)
			}
			cmd.Printf("Created user %s (id %d, %s).\n", created.Username, created.ID, strings.Join(created.Roles, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&u.Username, "username", "u", "", "Username of the new account")
	cmd.Flags().StringVarP(&u.Email, "email", "e", "", "Email address of the new account")
	cmd.Flags().StringVarP(&u.Password, "password", "p", "", "Initial password; the API generates one when omitted")
	cmd.Flags().StringSliceVarP(&u.Roles, "role", "r", nil, "Role to grant; repeatable (default VIEWER)")
	return cmd
}
