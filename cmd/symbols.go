package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phynance/phyn/client"
	"github.com/phynance/phyn/db"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/phynance/phyn/pkg/hasher"
	"github.com/phynance/phyn/pkg/pool"
	"github.com/phynance/phyn/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// symbolsCmd manages the local symbol catalogue.
func symbolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Manage the local symbol catalogue",
	}

	cmd.AddCommand(
		symbolsListCmd(),
		symbolsSearchCmd(),
		symbolsRefreshCmd(),
		symbolsExportCmd(),
	)

	return cmd
}

func symbolRepo() (db.SymbolRepository, error) {
	conn := db.GetDB()
	if conn == nil {
		return nil, clierr.New(clierr.Internal, "The local database is not initialized", nil)
	}
	return db.NewSymbolRepository(conn), nil
}

// symbolsListCmd shows the catalogue.
func symbolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all symbols in the local catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := symbolRepo()
			if err != nil {
				return err
			}
			symbols, err := repo.List(cmd.Context())
			if err != nil {
				log.Error().Err(err).Msg("Failed to fetch symbols from the catalogue.")
				return clierr.New(clierr.Internal, "Unable to list symbols", err)
			}
			if len(symbols) == 0 {
				cmd.Println("No symbols found in the catalogue. Use `phyn symbols refresh` to update the catalogue.")
				return nil
			}
			renderSymbols(cmd, symbols)
			log.Info().Msgf("Listed %d symbols in the catalogue.", len(symbols))
			return nil
		},
	}
}

// symbolsSearchCmd searches the catalogue, or the API with --remote.
func symbolsSearchCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Search symbols by ticker or company name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := args[0]
			if err := validation.ValidateNonEmptyString("search term", term); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if remote {
				return searchRemote(cmd, term)
			}

			repo, err := symbolRepo()
			if err != nil {
				return err
			}
			symbols, err := repo.Search(cmd.Context(), term)
			if err != nil {
				return clierr.New(clierr.Internal, "Unable to search the catalogue", err)
			}
			if len(symbols) == 0 {
				cmd.Println("No symbol(s) found matching the search term.")
				return nil
			}
			renderSymbols(cmd, symbols)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "Search the API instead of the local catalogue")
	return cmd
}

func searchRemote(cmd *cobra.Command, term string) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}
	matches, err := api.SearchSymbols(cmd.Context(), term)
	if err != nil {
		return clierr.FromAPI("Searching symbols", err)
	}
	if len(matches) == 0 {
		cmd.Println("No symbol(s) found matching the search term.")
		return nil
	}
	table := newTable(cmd.OutOrStdout(), "Symbol", "Name")
	for _, m := range matches {
		table.Append([]string{m.Symbol, m.Name})
	}
	table.Render()
	return nil
}

func renderSymbols(cmd *cobra.Command, symbols []db.Symbol) {
	table := newTable(cmd.OutOrStdout(), "Row ID", "Symbol", "Name", "Price", "Change", "Updated")
	table.SetColMinWidth(2, 30)
	for i, s := range symbols {
		price, change := "-", "-"
		if summary, ok := decodeSummary(s); ok {
			price = formatFloat(summary.CurrentPrice)
			change = formatPercent(summary.ChangePercent)
		}
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			s.Symbol,
			s.Name,
			price,
			change,
			s.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

func decodeSummary(s db.Symbol) (client.MarketSummary, bool) {
	var summary client.MarketSummary
	if s.Data == "" {
		return summary, false
	}
	if err := json.Unmarshal([]byte(s.Data), &summary); err != nil {
		log.Warn().Err(err).Str("symbol", s.Symbol).Msg("Stored market summary is not valid JSON")
		return summary, false
	}
	return summary, true
}

// symbolsRefreshCmd rebuilds the catalogue from the API.
func symbolsRefreshCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Update the catalogue with the symbols available to your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateWorkerCount(workers); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			return refreshSymbols(cmd, workers)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 5, "Number of concurrent requests [1-20]")
	return cmd
}

type refreshedSymbol struct {
	summary *client.MarketSummary
	raw     []byte
}

func refreshSymbols(cmd *cobra.Command, workers int) error {
	ctx := cmd.Context()
	log.Info().Msg("Refreshing the symbol catalogue...")

	api, err := newAPIClient()
	if err != nil {
		return err
	}
	repo, err := symbolRepo()
	if err != nil {
		return err
	}

	list, err := api.AvailableSymbols(ctx)
	if err != nil {
		return clierr.FromAPI("Fetching available symbols", err)
	}
	if len(list.Symbols) == 0 {
		cmd.Println("No symbols are available to your account.")
		return nil
	}
	names := companyNames(ctx, api)

	bar := newProgressBar(cmd.ErrOrStderr(), len(list.Symbols), "Refreshing symbols...")
	results := pool.Map(ctx, list.Symbols, workers, func(ctx context.Context, symbol string) (refreshedSymbol, error) {
		defer func() { _ = bar.Add(1) }()
		summary, err := api.MarketSummary(ctx, symbol)
		if err != nil {
			return refreshedSymbol{}, err
		}
		raw, err := json.Marshal(summary)
		if err != nil {
			return refreshedSymbol{}, err
		}
		return refreshedSymbol{summary: summary, raw: raw}, nil
	})
	_ = bar.Finish()

	// A lost session fails every request; keep the old catalogue in that case.
	for _, r := range results {
		if errors.Is(r.Err, client.ErrAuthentication) {
			return clierr.FromAPI("Refreshing symbols", r.Err)
		}
	}

	now := time.Now()
	records := make([]db.Symbol, 0, len(results))
	failed := 0
	for i, r := range results {
		symbol := list.Symbols[i]
		rec := db.Symbol{Symbol: symbol, Name: names[symbol], UpdatedAt: now}
		if r.Err != nil {
			failed++
			log.Warn().Err(r.Err).Str("symbol", symbol).Msg("Failed to fetch market summary")
		} else {
			rec.Data = string(r.Value.raw)
		}
		records = append(records, rec)
	}
	if err := repo.Replace(ctx, records); err != nil {
		log.Error().Err(err).Msg("Failed to store the symbol catalogue")
		return clierr.New(clierr.Internal, "Failed to store the symbol catalogue; the previous catalogue was kept", err)
	}

	cmd.Printf("Refreshing completed. There are %d symbols in the catalogue.\n", len(records))
	if failed > 0 {
		cmd.Printf("Market summaries could not be fetched for %d symbol(s).\n", failed)
	}
	return nil
}

// companyNames maps tickers to names via the search endpoint. Failure only loses the names.
func companyNames(ctx context.Context, api *client.Client) map[string]string {
	names := make(map[string]string)
	matches, err := api.SearchSymbols(ctx, "")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch company names")
		return names
	}
	for _, m := range matches {
		names[m.Symbol] = m.Name
	}
	return names
}

// symbolsExportCmd writes the catalogue to a JSON or CSV file.
func symbolsExportCmd() *cobra.Command {
	var exportDir, exportFormat, checksum string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the symbol catalogue to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportSymbols(cmd, exportDir, exportFormat, checksum)
		},
	}

	cmd.Flags().StringVarP(&exportDir, "dir", "d", ".", "Directory to export the file to")
	cmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format: json or csv")
	cmd.Flags().StringVar(&checksum, "checksum", "sha256", "Checksum to print for the exported file ["+
		strings.Join(hasher.Algorithms, ", ")+"]; empty to skip")

	return cmd
}

func exportSymbols(cmd *cobra.Command, exportDir, exportFormat, checksum string) error {
	if err := validation.ValidateExportFormat(exportFormat); err != nil {
		return clierr.New(clierr.Validation, err.Error(), err)
	}
	if checksum != "" && !hasher.Supported(checksum) {
		return clierr.New(clierr.Validation, "Unsupported checksum algorithm: "+checksum, nil)
	}
	if err := validation.ValidateNonEmptyString("export directory", exportDir); err != nil {
		return clierr.New(clierr.Validation, err.Error(), err)
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		log.Error().Err(err).Msg("Failed to create export directory.")
		return clierr.New(clierr.Internal, "Failed to create export directory", err)
	}

	repo, err := symbolRepo()
	if err != nil {
		return err
	}
	symbols, err := repo.List(cmd.Context())
	if err != nil {
		return clierr.New(clierr.Internal, "Failed to read the symbol catalogue", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filePath := filepath.Join(exportDir, fmt.Sprintf("phyn_symbols_%s.%s", timestamp, exportFormat))
	if exportFormat == "json" {
		err = exportSymbolsToJSON(filePath, symbols)
	} else {
		err = exportSymbolsToCSV(filePath, symbols)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to export the symbol catalogue.")
		return clierr.New(clierr.Internal, "Failed to export the symbol catalogue", err)
	}

	cmd.Printf("Exported %d symbols to %s\n", len(symbols), filePath)
	if checksum != "" {
		sum, err := hasher.SumFile(filePath, checksum)
		if err != nil {
			return clierr.New(clierr.Internal, "Failed to checksum the exported file", err)
		}
		cmd.Printf("%s: %s\n", strings.ToUpper(checksum), sum)
	}
	return nil
}

type exportedSymbol struct {
	Symbol    string                `json:"symbol"`
	Name      string                `json:"name"`
	Summary   *client.MarketSummary `json:"summary,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

func exportSymbolsToJSON(path string, symbols []db.Symbol) error {
	out := make([]exportedSymbol, 0, len(symbols))
	for _, s := range symbols {
		e := exportedSymbol{Symbol: s.Symbol, Name: s.Name, UpdatedAt: s.UpdatedAt}
		if summary, ok := decodeSummary(s); ok {
			e.Summary = &summary
		}
		out = append(out, e)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeJSON(file, out)
}

func exportSymbolsToCSV(path string, symbols []db.Symbol) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"symbol", "name", "current_price", "change_percent", "updated_at"}); err != nil {
		return err
	}
	for _, s := range symbols {
		price, change := "", ""
		if summary, ok := decodeSummary(s); ok {
			price = formatFloat(summary.CurrentPrice)
			change = formatFloat(summary.ChangePercent)
		}
		if err := w.Write([]string{s.Symbol, s.Name, price, change, s.UpdatedAt.UTC().Format(time.RFC3339)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
