package client

import (
	"context"
	"net/url"
	"strings"
)

// MarketData fetches OHLCV bars for symbol.
func (c *Client) MarketData(ctx context.Context, symbol string) ([]MarketBar, error) {
	env, err := GetAs[Envelope[[]MarketBar]](ctx, c, "/market-data", WithQuery(url.Values{"symbol": {symbol}}))
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// MarketSummary fetches the viewer summary for symbol.
func (c *Client) MarketSummary(ctx context.Context, symbol string) (*MarketSummary, error) {
	s, err := GetAs[MarketSummary](ctx, c, "/viewer/market-summary/"+url.PathEscape(strings.ToUpper(symbol)))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AvailableSymbols lists the symbols the current role may query.
func (c *Client) AvailableSymbols(ctx context.Context) (*SymbolList, error) {
	l, err := GetAs[SymbolList](ctx, c, "/viewer/available-symbols")
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SearchSymbols runs a remote symbol search.
func (c *Client) SearchSymbols(ctx context.Context, query string) ([]SymbolMatch, error) {
	return GetAs[[]SymbolMatch](ctx, c, "/stocks/search", WithQuery(url.Values{"q": {query}}))
}

// UsageStats fetches the caller's rate-limit counters.
func (c *Client) UsageStats(ctx context.Context) (*UsageStats, error) {
	u, err := GetAs[UsageStats](ctx, c, "/viewer/usage-stats")
	if err != nil {
		return nil, err
	}
	return &u, nil
}
