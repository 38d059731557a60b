package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phynance/phyn/auth"
	"github.com/phynance/phyn/client"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/phynance/phyn/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// loginCmd creates a new cobra.Command for logging into the Phynance API.
func loginCmd() *cobra.Command {
	var username, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the Phynance API",
		Long:  "Login to the Phynance API with your username and password and store the session locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				cmd.Println("Please enter your Phynance username and password.")
				var err error
				if username, err = promptForInput(cmd, in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				var err error
				if passwordStdin {
					password, err = readLine(in)
				} else {
					password, err = promptForPassword(cmd, in, "Password: ")
				}
				if err != nil {
					return err
				}
			}
			if err := validateCredentials(username, password); err != nil {
				return err
			}
			return runLogin(cmd, username, password)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username to login with")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password; prompted for when omitted")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from standard input")

	return cmd
}

func runLogin(cmd *cobra.Command, username, password string) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}
	profile, err := newAuthService(api).Login(cmd.Context(), username, password)
	if errors.Is(err, auth.ErrProfileUnavailable) {
		cmd.Println("Login was successful.")
		cmd.Println("The user profile could not be fetched; run `phyn whoami` to retry.")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Login failed")
		if errors.Is(err, client.ErrAuthentication) {
			return clierr.New(clierr.Auth, "Login failed: "+client.MessageOf(err), err)
		}
		return clierr.FromAPI("Login", err)
	}

	cmd.Println("Login was successful.")
	cmd.Printf("Logged in as %s (%s).\n", profile.Username, strings.Join(profile.RoleList(), ", "))
	return nil
}

// logoutCmd removes the stored session.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and remove the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			if err := newAuthService(api).Logout(cmd.Context()); err != nil {
				return clierr.New(clierr.Internal, "Failed to remove the stored credentials", err)
			}
			cmd.Println("Logged out.")
			return nil
		},
	}
}

// whoamiCmd fetches the current user's profile from the API.
func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			profile, err := newAuthService(api).Me(cmd.Context())
			if err != nil {
				return clierr.FromAPI("Fetching the user profile", err)
			}

			table := newKeyValueTable(cmd.OutOrStdout())
			table.Append([]string{"ID", fmt.Sprintf("%d", profile.UserID)})
			table.Append([]string{"Username", profile.Username})
			table.Append([]string{"Email", profile.Email})
			table.Append([]string{"Roles", strings.Join(profile.RoleList(), ", ")})
			table.Render()
			return nil
		},
	}
}

// promptForInput prompts the user for input and returns the trimmed string.
func promptForInput(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	cmd.Print(prompt)
	return readLine(in)
}

// promptForPassword reads a password without echo when stdin is a terminal.
func promptForPassword(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	cmd.Print(prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", clierr.New(clierr.Internal, "Failed to read password", err)
		}
		return strings.TrimSpace(string(password)), nil
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", clierr.New(clierr.Validation, "Failed to read input", err)
	}
	return strings.TrimSpace(line), nil
}

// validateCredentials checks that the username and password are not empty.
func validateCredentials(username, password string) error {
	if err := validation.ValidateNonEmptyString("username", username); err != nil {
		return clierr.New(clierr.Validation, "Username and password cannot be empty.", err)
	}
	if err := validation.ValidateNonEmptyString("password", password); err != nil {
		return clierr.New(clierr.Validation, "Username and password cannot be empty.", err)
	}
	return nil
}
