package client

// Envelope wraps list replies of the market data endpoints.
type Envelope[T any] struct {
	Data      T      `json:"data"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// MarketBar is one OHLCV bar.
type MarketBar struct {
	ID        int64   `json:"id"`
	Symbol    string  `json:"symbol"`
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// MarketSummary is the 30-day summary served to viewers.
type MarketSummary struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"currentPrice"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	PeriodHigh    float64 `json:"periodHigh"`
	PeriodLow     float64 `json:"periodLow"`
	DataPoints    int     `json:"dataPoints"`
	DataRange     string  `json:"dataRange"`
	Message       string  `json:"message,omitempty"`
}

// SymbolList is the reply of /viewer/available-symbols.
type SymbolList struct {
	Symbols []string `json:"symbols"`
	Count   int      `json:"count"`
	Message string   `json:"message,omitempty"`
}

// SymbolMatch is one /stocks/search hit.
type SymbolMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// UsageStats is the reply of /viewer/usage-stats.
type UsageStats struct {
	Role                 string `json:"role"`
	APIRequestsThisHour  int    `json:"apiRequestsThisHour"`
	APIRequestsLimit     int    `json:"apiRequestsLimit"`
	CalculationsThisHour int    `json:"calculationsThisHour"`
	CalculationsLimit    int    `json:"calculationsLimit"`
	DataAccessLimit      string `json:"dataAccessLimit"`
	SymbolLimit          int    `json:"symbolLimit"`
	Message              string `json:"message,omitempty"`
}

// Prediction is a single forecast point.
type Prediction struct {
	Date           string  `json:"date"`
	PredictedPrice float64 `json:"predictedPrice"`
}

// HarmonicRequest asks for a damped harmonic oscillator fit.
type HarmonicRequest struct {
	Symbol         string   `json:"symbol"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	DampingFactor  *float64 `json:"dampingFactor,omitempty"`
	Frequency      *float64 `json:"frequency,omitempty"`
	PredictionDays *int     `json:"predictionDays,omitempty"`
}

// HarmonicResult is the oscillator fit and its signal.
type HarmonicResult struct {
	Symbol            string       `json:"symbol"`
	Amplitude         float64      `json:"amplitude"`
	Frequency         float64      `json:"frequency"`
	Damping           float64      `json:"damping"`
	Phase             float64      `json:"phase"`
	Predictions       []Prediction `json:"predictions"`
	SupportLevels     []float64    `json:"supportLevels"`
	ResistanceLevels  []float64    `json:"resistanceLevels"`
	TradingSignal     string       `json:"tradingSignal"`
	Confidence        float64      `json:"confidence"`
	AnalysisTimestamp string       `json:"analysisTimestamp"`
	DataStartDate     string       `json:"dataStartDate"`
	DataEndDate       string       `json:"dataEndDate"`
	DataPoints        int          `json:"dataPoints"`
}

// BasicHarmonic is the restricted oscillator view for viewers.
type BasicHarmonic struct {
	Symbol          string    `json:"symbol"`
	AnalysisType    string    `json:"analysisType"`
	DataRange       string    `json:"dataRange"`
	PredictionDays  int       `json:"predictionDays"`
	CurrentPrice    float64   `json:"currentPrice"`
	PredictedPrices []float64 `json:"predictedPrices"`
	Signals         []string  `json:"signals"`
	SupportLevel    *float64  `json:"supportLevel"`
	ResistanceLevel *float64  `json:"resistanceLevel"`
	Message         string    `json:"message,omitempty"`
}

// WaveRequest asks for a wave interference decomposition.
type WaveRequest struct {
	Symbol          string `json:"symbol"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	PredictionWeeks int    `json:"predictionWeeks,omitempty"`
}

// WaveComponent is one periodic component of a wave analysis.
type WaveComponent struct {
	Amplitude float64 `json:"amplitude"`
	Frequency float64 `json:"frequency"`
	Phase     float64 `json:"phase"`
	Period    string  `json:"period"`
}

// WaveResult is the reply of /analysis/wave-physics.
type WaveResult struct {
	Symbol              string          `json:"symbol"`
	WaveComponents      []WaveComponent `json:"waveComponents"`
	InterferencePattern string          `json:"interferencePattern"`
	Predictions         []Prediction    `json:"predictions"`
	TradingSignal       string          `json:"tradingSignal"`
	Confidence          float64         `json:"confidence"`
	AnalysisTimestamp   string          `json:"analysisTimestamp"`
	DataStartDate       string          `json:"dataStartDate"`
	DataEndDate         string          `json:"dataEndDate"`
	DataPoints          int             `json:"dataPoints"`
}

// ThermoRequest asks for a market thermodynamics reading.
type ThermoRequest struct {
	Symbol         string   `json:"symbol"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	RelatedSymbols []string `json:"relatedSymbols,omitempty"`
}

// ThermoResult is the reply of /analysis/thermodynamics.
type ThermoResult struct {
	Symbol            string  `json:"symbol"`
	Temperature       float64 `json:"temperature"`
	PhaseState        string  `json:"phaseState"`
	Entropy           float64 `json:"entropy"`
	HeatCapacity      float64 `json:"heatCapacity"`
	TradingSignal     string  `json:"tradingSignal"`
	Confidence        float64 `json:"confidence"`
	AnalysisTimestamp string  `json:"analysisTimestamp"`
	DataStartDate     string  `json:"dataStartDate"`
	DataEndDate       string  `json:"dataEndDate"`
	DataPoints        int     `json:"dataPoints"`
}
