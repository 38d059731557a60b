package mock

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/phynance/phyn/client"
)

// User is a demo account of the mock API.
type User struct {
	ID       int64
	Username string
	Password string
	Email    string
	Roles    []string
}

// DemoUsers are available on every mock server.
var DemoUsers = []User{
	{ID: 1, Username: "viewer", Password: "viewer123", Email: "viewer@phynance.local", Roles: []string{"VIEWER"}},
	{ID: 2, Username: "trader", Password: "trader123", Email: "trader@phynance.local", Roles: []string{"TRADER"}},
	{ID: 3, Username: "analyst", Password: "analyst123", Email: "analyst@phynance.local", Roles: []string{"ANALYST"}},
	{ID: 4, Username: "admin", Password: "admin123", Email: "admin@phynance.local", Roles: []string{"ADMIN"}},
}

var knownRoles = map[string]bool{"VIEWER": true, "TRADER": true, "ANALYST": true, "ADMIN": true}

func (u User) hasRole(roles ...string) bool {
	for _, have := range u.Roles {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

func (u User) profile() client.UserProfile {
	return client.UserProfile{ID: u.ID, Username: u.Username, Email: u.Email, Roles: u.Roles}
}

var companyNames = map[string]string{
	"AAPL":  "Apple Inc.",
	"SPY":   "SPDR S&P 500 ETF Trust",
	"TSLA":  "Tesla, Inc.",
	"MSFT":  "Microsoft Corporation",
	"GOOGL": "Alphabet Inc.",
	"AMZN":  "Amazon.com, Inc.",
	"META":  "Meta Platforms, Inc.",
	"NVDA":  "NVIDIA Corporation",
}

var availableSymbols = []string{"AAPL", "SPY", "TSLA", "MSFT", "GOOGL", "AMZN", "META", "NVDA"}

var marketSummaries = map[string]client.MarketSummary{
	"AAPL": {Symbol: "AAPL", CurrentPrice: 150.25, Change: 2.15, ChangePercent: 1.45, PeriodHigh: 155.0, PeriodLow: 145.0, DataPoints: 30, DataRange: "Last 30 days"},
	"SPY":  {Symbol: "SPY", CurrentPrice: 425.8, Change: -1.2, ChangePercent: -0.28, PeriodHigh: 430.0, PeriodLow: 415.5, DataPoints: 30, DataRange: "Last 30 days"},
	"TSLA": {Symbol: "TSLA", CurrentPrice: 180.95, Change: 5.45, ChangePercent: 3.11, PeriodHigh: 185.0, PeriodLow: 165.0, DataPoints: 30, DataRange: "Last 30 days"},
}

var priceHistory = []float64{148.5, 149.25, 147.8, 150.15, 151.2, 149.95, 152.3, 150.75, 148.6, 150.25}

var forecast = []client.Prediction{
	{Date: "2024-02-01", PredictedPrice: 151.2},
	{Date: "2024-02-02", PredictedPrice: 152.45},
	{Date: "2024-02-03", PredictedPrice: 151.8},
	{Date: "2024-02-04", PredictedPrice: 150.95},
	{Date: "2024-02-05", PredictedPrice: 149.75},
}

func summaryFor(symbol string) (client.MarketSummary, bool) {
	s, ok := marketSummaries[symbol]
	if ok {
		s.Message = "Basic market summary. Upgrade to TRADER+ for extended historical data."
		return s, true
	}
	bars, ok := barsFor(symbol)
	if !ok {
		return client.MarketSummary{}, false
	}
	first, last := bars[0].Close, bars[len(bars)-1].Close
	high, low := bars[0].High, bars[0].Low
	for _, b := range bars {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return client.MarketSummary{
		Symbol:        symbol,
		CurrentPrice:  last,
		Change:        round2(last - first),
		ChangePercent: round2((last - first) / first * 100),
		PeriodHigh:    high,
		PeriodLow:     low,
		DataPoints:    len(bars),
		DataRange:     "Last 30 days",
		Message:       "Basic market summary. Upgrade to TRADER+ for extended historical data.",
	}, true
}

// barsFor derives a deterministic OHLCV series from the sample price history,
// scaled so each symbol has its own price level.
func barsFor(symbol string) ([]client.MarketBar, bool) {
	if _, ok := companyNames[symbol]; !ok {
		return nil, false
	}
	scale := 1.0
	if s, ok := marketSummaries[symbol]; ok {
		scale = s.CurrentPrice / priceHistory[len(priceHistory)-1]
	} else {
		for _, r := range symbol {
			scale += float64(r-'A') / 40
		}
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]client.MarketBar, len(priceHistory))
	for i, p := range priceHistory {
		closePrice := round2(p * scale)
		bars[i] = client.MarketBar{
			ID:        int64(i + 1),
			Symbol:    symbol,
			Timestamp: start.AddDate(0, 0, i).Format(time.RFC3339),
			Open:      round2(closePrice * 0.995),
			High:      round2(closePrice * 1.012),
			Low:       round2(closePrice * 0.988),
			Close:     closePrice,
			Volume:    int64(1_000_000 + 37_500*i),
		}
	}
	return bars, true
}

func harmonicFor(symbol, start, end string) client.HarmonicResult {
	return client.HarmonicResult{
		Symbol:            symbol,
		Amplitude:         5.23,
		Frequency:         0.15,
		Damping:           0.02,
		Phase:             1.57,
		Predictions:       append([]client.Prediction(nil), forecast...),
		SupportLevels:     []float64{145.5, 148.25, 150.0},
		ResistanceLevels:  []float64{152.75, 155.5, 158.0},
		TradingSignal:     "BUY",
		Confidence:        0.78,
		AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
		DataStartDate:     orDefault(start, "2024-01-01"),
		DataEndDate:       orDefault(end, "2024-01-31"),
		DataPoints:        30,
	}
}

func basicHarmonicFor(symbol string) client.BasicHarmonic {
	h := harmonicFor(symbol, "", "")
	prices := make([]float64, len(h.Predictions))
	for i, p := range h.Predictions {
		prices[i] = p.PredictedPrice
	}
	support, resistance := h.SupportLevels[0], h.ResistanceLevels[0]
	current := 150.25
	if s, ok := summaryFor(symbol); ok {
		current = s.CurrentPrice
	}
	return client.BasicHarmonic{
		Symbol:          symbol,
		AnalysisType:    "Basic Harmonic Oscillator",
		DataRange:       "Last 30 days",
		PredictionDays:  5,
		CurrentPrice:    current,
		PredictedPrices: prices,
		Signals:         []string{h.TradingSignal},
		SupportLevel:    &support,
		ResistanceLevel: &resistance,
		Message:         "Basic analysis with default parameters. Upgrade to TRADER+ for custom parameters.",
	}
}

func waveFor(symbol, start, end string) client.WaveResult {
	return client.WaveResult{
		Symbol: symbol,
		WaveComponents: []client.WaveComponent{
			{Amplitude: 3.45, Frequency: 0.12, Phase: 0.78, Period: "Daily cycle"},
			{Amplitude: 2.15, Frequency: 0.02, Phase: 1.23, Period: "Weekly cycle"},
			{Amplitude: 1.8, Frequency: 0.005, Phase: 2.45, Period: "Monthly cycle"},
		},
		InterferencePattern: "CONSTRUCTIVE",
		Predictions: []client.Prediction{
			{Date: "2024-02-01", PredictedPrice: 152.3},
			{Date: "2024-02-02", PredictedPrice: 153.1},
			{Date: "2024-02-03", PredictedPrice: 152.85},
			{Date: "2024-02-04", PredictedPrice: 151.95},
			{Date: "2024-02-05", PredictedPrice: 150.8},
		},
		TradingSignal:     "HOLD",
		Confidence:        0.82,
		AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
		DataStartDate:     orDefault(start, "2024-01-10"),
		DataEndDate:       orDefault(end, "2024-01-31"),
		DataPoints:        21,
	}
}

func thermoFor(symbol, start, end string) client.ThermoResult {
	return client.ThermoResult{
		Symbol:            symbol,
		Temperature:       2.45,
		PhaseState:        "NORMAL",
		Entropy:           1.23,
		HeatCapacity:      0.89,
		TradingSignal:     "SELL",
		Confidence:        0.75,
		AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
		DataStartDate:     orDefault(start, "2024-01-01"),
		DataEndDate:       orDefault(end, "2024-01-31"),
		DataPoints:        30,
	}
}

func usageFor(u User, used, limit int) client.UsageStats {
	role := "VIEWER"
	if len(u.Roles) > 0 {
		role = strings.ToUpper(u.Roles[0])
	}
	return client.UsageStats{
		Role:                 role,
		APIRequestsThisHour:  used,
		APIRequestsLimit:     limit,
		CalculationsThisHour: 2,
		CalculationsLimit:    5,
		DataAccessLimit:      "30 days",
		SymbolLimit:          1,
		Message:              fmt.Sprintf("Usage for %s. Upgrade to TRADER+ for extended limits.", u.Username),
	}
}

func searchSymbols(q string) []client.SymbolMatch {
	q = strings.ToLower(strings.TrimSpace(q))
	matches := []client.SymbolMatch{}
	for _, sym := range availableSymbols {
		name := companyNames[sym]
		if q == "" || strings.Contains(strings.ToLower(sym), q) || strings.Contains(strings.ToLower(name), q) {
			matches = append(matches, client.SymbolMatch{Symbol: sym, Name: name})
		}
	}
	return matches
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
