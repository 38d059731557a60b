package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/phynance/phyn/auth"
	"github.com/phynance/phyn/client"
	"github.com/phynance/phyn/db"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/schollz/progressbar/v3"
)

// baseURL is --api-url if given, else the configured one.
func baseURL() string {
	if apiURL != "" {
		return apiURL
	}
	return cfg.API.BaseURL
}

// newAPIClient builds a client that reads and rotates the stored credentials.
func newAPIClient() (*client.Client, error) {
	conn := db.GetDB()
	if conn == nil {
		return nil, clierr.New(clierr.Internal, "The local database is not initialized", nil)
	}
	c, err := client.New(baseURL(), db.NewTokenRepository(conn), client.WithDefaultTimeout(cfg.API.Timeout))
	if err != nil {
		return nil, clierr.New(clierr.Validation, "Invalid API URL: "+err.Error(), err)
	}
	return c, nil
}

func newAuthService(api *client.Client) *auth.Service {
	conn := db.GetDB()
	return auth.NewServiceWithRepo(api, db.NewTokenRepository(conn), db.NewProfileRepository(conn))
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	return table
}

// newKeyValueTable renders rows of label/value pairs.
func newKeyValueTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetColumnSeparator(":")
	table.SetBorder(false)
	return table
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func formatConfidence(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
