package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/phynance/phyn/db"
	"github.com/phynance/phyn/mock"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedToken(t *testing.T) *db.Token {
	t.Helper()
	tok, err := db.NewTokenRepository(db.GetDB()).Get(context.Background())
	require.NoError(t, err)
	return tok
}

func TestLoginCmd_WithFlags(t *testing.T) {
	startMockAPI(t, mock.Options{})

	out, err := captureCombinedOutput(loginCmd(), "--username", "trader", "--password", "trader123")
	require.NoError(t, err)
	assert.Contains(t, out, "Login was successful.")
	assert.Contains(t, out, "Logged in as trader (TRADER)")

	tok := storedToken(t)
	require.NotNil(t, tok)
	assert.NotEmpty(t, tok.AccessToken)
	assert.NotEmpty(t, tok.RefreshToken)
	assert.NotEmpty(t, tok.ExpiresAt)
}

func TestLoginCmd_PromptsOnStdin(t *testing.T) {
	startMockAPI(t, mock.Options{})

	cmd := loginCmd()
	cmd.SetIn(strings.NewReader("viewer\nviewer123\n"))
	out, err := captureCombinedOutput(cmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Username: ")
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "Login was successful.")
}

func TestLoginCmd_PasswordStdin(t *testing.T) {
	startMockAPI(t, mock.Options{})

	cmd := loginCmd()
	cmd.SetIn(strings.NewReader("analyst123"))
	out, err := captureCombinedOutput(cmd, "-u", "analyst", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as analyst")
}

func TestLoginCmd_WrongPassword(t *testing.T) {
	srv := startMockAPI(t, mock.Options{})

	out, err := captureCombinedOutput(loginCmd(), "-u", "viewer", "-p", "wrong")
	cliErr := requireCLIError(t, err, clierr.Auth)
	assert.Contains(t, cliErr.Message, "Invalid credentials")
	assert.Contains(t, out, "Error:")
	assert.Nil(t, storedToken(t))
	assert.Zero(t, srv.RefreshCount())
}

func TestLoginCmd_EmptyInput(t *testing.T) {
	startMockAPI(t, mock.Options{})

	cmd := loginCmd()
	cmd.SetIn(strings.NewReader("\n\n"))
	_, err := captureCombinedOutput(cmd)
	requireCLIError(t, err, clierr.Validation)
}

func TestLogoutCmd(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "viewer", "viewer123")

	out, err := captureCombinedOutput(logoutCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")
	assert.Nil(t, storedToken(t))
}

func TestWhoamiCmd(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "admin", "admin123")

	out, err := captureCombinedOutput(whoamiCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "admin@phynance.local")
	assert.Contains(t, out, "ADMIN")
}

func TestWhoamiCmd_NotLoggedIn(t *testing.T) {
	startMockAPI(t, mock.Options{})

	_, err := captureCombinedOutput(whoamiCmd())
	cliErr := requireCLIError(t, err, clierr.Auth)
	assert.Contains(t, cliErr.Message, "phyn login")
}

func TestWhoamiCmd_RefreshesExpiredSession(t *testing.T) {
	srv := startMockAPI(t, mock.Options{})
	loginAs(t, "viewer", "viewer123")
	before := storedToken(t)

	srv.Issuer().ExpireAccessTokens()

	out, err := captureCombinedOutput(whoamiCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "viewer")
	assert.EqualValues(t, 1, srv.RefreshCount())
	after := storedToken(t)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)
}

func TestAuthStatusCmd(t *testing.T) {
	startMockAPI(t, mock.Options{})

	out, err := captureCombinedOutput(authCmd(), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")

	loginAs(t, "trader", "trader123")
	out, err = captureCombinedOutput(authCmd(), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "trader")
	assert.Contains(t, out, "valid until")
	assert.Contains(t, out, "present")
}
