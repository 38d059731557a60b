package cmd

import (
	"encoding/json"
	"testing"

	"github.com/phynance/phyn/client"
	"github.com/phynance/phyn/mock"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeHarmonicCmd(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "trader", "trader123")

	out, err := captureCombinedOutput(analyzeCmd(), "harmonic", "AAPL",
		"--start", "2024-01-01", "--end", "2024-01-31", "--damping", "0.1", "--days", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Amplitude")
	assert.Contains(t, out, "BUY")
	assert.Contains(t, out, "78%")
	assert.Contains(t, out, "2024-01-01 .. 2024-01-31")
}

func TestAnalyzeHarmonicCmd_JSON(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "trader", "trader123")

	out, err := captureCombinedOutput(analyzeCmd(), "harmonic", "SPY", "--json")
	require.NoError(t, err)
	var res client.HarmonicResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "SPY", res.Symbol)
	assert.NotEmpty(t, res.Predictions)
}

func TestAnalyzeHarmonicCmd_Basic(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "viewer", "viewer123")

	out, err := captureCombinedOutput(analyzeCmd(), "harmonic", "AAPL", "--basic")
	require.NoError(t, err)
	assert.Contains(t, out, "Basic Harmonic Oscillator")
}

func TestAnalyzeHarmonicCmd_BadDates(t *testing.T) {
	startMockAPI(t, mock.Options{})

	_, err := captureCombinedOutput(analyzeCmd(), "harmonic", "AAPL", "--start", "2024-02-01", "--end", "2024-01-01")
	requireCLIError(t, err, clierr.Validation)
	_, err = captureCombinedOutput(analyzeCmd(), "harmonic", "AAPL", "--start", "2024-02-01")
	requireCLIError(t, err, clierr.Validation)
}

func TestAnalyzeWaveCmd(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "analyst", "analyst123")

	out, err := captureCombinedOutput(analyzeCmd(), "wave", "TSLA", "--weeks", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "CONSTRUCTIVE")
	assert.Contains(t, out, "Weekly cycle")
}

func TestAnalyzeThermoCmd(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "analyst", "analyst123")

	out, err := captureCombinedOutput(analyzeCmd(), "thermo", "AAPL", "--related", "spy,tsla")
	require.NoError(t, err)
	assert.Contains(t, out, "NORMAL")
	assert.Contains(t, out, "SELL")
}

func TestAnalyzeBatchCmd_RefreshesOnceForAllWorkers(t *testing.T) {
	srv := startMockAPI(t, mock.Options{})
	loginAs(t, "trader", "trader123")
	srv.Issuer().ExpireAccessTokens()

	out, err := captureCombinedOutput(analyzeCmd(), "batch", "--model", "wave", "--workers", "6",
		"AAPL", "SPY", "TSLA", "MSFT", "GOOGL", "AMZN")
	require.NoError(t, err)
	assert.EqualValues(t, 1, srv.RefreshCount())
	for _, s := range []string{"AAPL", "SPY", "TSLA"} {
		assert.Contains(t, out, s)
	}
	assert.Contains(t, out, "HOLD")
	assert.NotContains(t, out, "analyses failed")
}

func TestAnalyzeBatchCmd_PartialFailure(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "trader", "trader123")

	out, err := captureCombinedOutput(analyzeCmd(), "batch", "-m", "thermo", "AAPL", "NOPE")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2 analyses failed.")
}

func TestAnalyzeBatchCmd_AllFail(t *testing.T) {
	startMockAPI(t, mock.Options{})

	_, err := captureCombinedOutput(analyzeCmd(), "batch", "AAPL", "SPY")
	requireCLIError(t, err, clierr.Auth)
}

func TestAnalyzeBatchCmd_InvalidModel(t *testing.T) {
	startMockAPI(t, mock.Options{})

	_, err := captureCombinedOutput(analyzeCmd(), "batch", "--model", "quantum", "AAPL")
	requireCLIError(t, err, clierr.Validation)
}
