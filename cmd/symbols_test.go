package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phynance/phyn/db"
	"github.com/phynance/phyn/mock"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/phynance/phyn/pkg/hasher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addTestSymbol(t *testing.T, symbol, name, data string) {
	t.Helper()
	repo := db.NewSymbolRepository(db.GetDB())
	require.NoError(t, repo.Put(context.Background(), db.Symbol{Symbol: symbol, Name: name, Data: data, UpdatedAt: time.Now()}))
}

func TestSymbolsListCmd_Empty(t *testing.T) {
	cleanDBTables(t)
	out, err := captureCombinedOutput(symbolsCmd(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No symbols found in the catalogue")
}

func TestSymbolsListCmd(t *testing.T) {
	cleanDBTables(t)
	addTestSymbol(t, "AAPL", "Apple Inc.", `{"symbol":"AAPL","currentPrice":150.25,"changePercent":1.5}`)
	addTestSymbol(t, "SPY", "SPDR S&P 500 ETF", "")

	out, err := captureCombinedOutput(symbolsCmd(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Apple Inc.")
	assert.Contains(t, out, "150.25")
	assert.Contains(t, out, "+1.50%")
	assert.Contains(t, out, "SPDR S&P 500 ETF")
}

func TestSymbolsSearchCmd_Local(t *testing.T) {
	cleanDBTables(t)
	addTestSymbol(t, "AAPL", "Apple Inc.", "")
	addTestSymbol(t, "TSLA", "Tesla Inc.", "")

	out, err := captureCombinedOutput(symbolsCmd(), "search", "apple")
	require.NoError(t, err)
	assert.Contains(t, out, "AAPL")
	assert.NotContains(t, out, "TSLA")

	out, err = captureCombinedOutput(symbolsCmd(), "search", "nothing-like-this")
	require.NoError(t, err)
	assert.Contains(t, out, "No symbol(s) found")
}

func TestSymbolsSearchCmd_Remote(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "viewer", "viewer123")

	out, err := captureCombinedOutput(symbolsCmd(), "search", "tesla", "--remote")
	require.NoError(t, err)
	assert.Contains(t, out, "TSLA")
}

func TestSymbolsRefreshCmd(t *testing.T) {
	startMockAPI(t, mock.Options{})
	loginAs(t, "viewer", "viewer123")
	addTestSymbol(t, "OLD", "Stale entry", "")

	out, err := captureCombinedOutput(symbolsCmd(), "refresh", "--workers", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Refreshing completed.")

	symbols, err := db.NewSymbolRepository(db.GetDB()).List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, symbols)
	bySymbol := map[string]db.Symbol{}
	for _, s := range symbols {
		bySymbol[s.Symbol] = s
	}
	assert.NotContains(t, bySymbol, "OLD")
	require.Contains(t, bySymbol, "AAPL")
	assert.NotEmpty(t, bySymbol["AAPL"].Name)
	summary, ok := decodeSummary(bySymbol["AAPL"])
	require.True(t, ok)
	assert.Equal(t, "AAPL", summary.Symbol)
}

func TestSymbolsRefreshCmd_ExpiredSessionRefreshesOnce(t *testing.T) {
	srv := startMockAPI(t, mock.Options{})
	loginAs(t, "viewer", "viewer123")
	srv.Issuer().ExpireAccessTokens()

	_, err := captureCombinedOutput(symbolsCmd(), "refresh", "--workers", "8")
	require.NoError(t, err)
	assert.EqualValues(t, 1, srv.RefreshCount())
}

func TestSymbolsRefreshCmd_LostSessionKeepsCatalogue(t *testing.T) {
	srv := startMockAPI(t, mock.Options{})
	loginAs(t, "viewer", "viewer123")
	addTestSymbol(t, "KEEP", "Kept entry", "")
	srv.Issuer().ExpireAccessTokens()
	srv.Issuer().RevokeRefreshTokens()

	_, err := captureCombinedOutput(symbolsCmd(), "refresh")
	requireCLIError(t, err, clierr.Auth)

	kept, err := db.NewSymbolRepository(db.GetDB()).Get(context.Background(), "KEEP")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestSymbolsRefreshCmd_InvalidWorkers(t *testing.T) {
	cleanDBTables(t)
	_, err := captureCombinedOutput(symbolsCmd(), "refresh", "--workers", "0")
	requireCLIError(t, err, clierr.Validation)
	_, err = captureCombinedOutput(symbolsCmd(), "refresh", "--workers", "21")
	requireCLIError(t, err, clierr.Validation)
}

func exportedFile(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return filepath.Join(dir, entries[0].Name())
}

func TestSymbolsExportCmd_JSON(t *testing.T) {
	cleanDBTables(t)
	addTestSymbol(t, "AAPL", "Apple Inc.", `{"symbol":"AAPL","currentPrice":150.25}`)
	dir := t.TempDir()

	out, err := captureCombinedOutput(symbolsCmd(), "export", "--dir", dir, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, dir)

	path := exportedFile(t, dir)
	sum, err := hasher.SumFile(path, "sha256")
	require.NoError(t, err)
	assert.Contains(t, out, "SHA256: "+sum)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var exported []exportedSymbol
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "Apple Inc.", exported[0].Name)
	require.NotNil(t, exported[0].Summary)
	assert.Equal(t, 150.25, exported[0].Summary.CurrentPrice)
}

func TestSymbolsExportCmd_CSV(t *testing.T) {
	cleanDBTables(t)
	addTestSymbol(t, "TSLA", "Tesla, Inc.", `{"symbol":"TSLA","currentPrice":248.5,"changePercent":-2.1}`)
	dir := t.TempDir()

	out, err := captureCombinedOutput(symbolsCmd(), "export", "-d", dir, "-f", "csv", "--checksum", "")
	require.NoError(t, err)
	assert.NotContains(t, out, "SHA256")

	f, err := os.Open(exportedFile(t, dir))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"symbol", "name", "current_price", "change_percent", "updated_at"}, rows[0])
	assert.Equal(t, "Tesla, Inc.", rows[1][1])
	assert.Equal(t, "248.50", rows[1][2])
	assert.Equal(t, "-2.10", rows[1][3])
}

func TestSymbolsExportCmd_InvalidFormat(t *testing.T) {
	cleanDBTables(t)
	_, err := captureCombinedOutput(symbolsCmd(), "export", "--dir", t.TempDir(), "--format", "xml")
	requireCLIError(t, err, clierr.Validation)
	_, err = captureCombinedOutput(symbolsCmd(), "export", "--dir", t.TempDir(), "--checksum", "crc32")
	requireCLIError(t, err, clierr.Validation)
}
