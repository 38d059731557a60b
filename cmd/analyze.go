package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/phynance/phyn/client"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/phynance/phyn/pkg/pool"
	"github.com/phynance/phyn/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// dateRange holds the --start and --end flags shared by the analysis commands.
type dateRange struct {
	start, end string
}

func (d *dateRange) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.start, "start", "", "First day of the analysed window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&d.end, "end", "", "Last day of the analysed window (YYYY-MM-DD)")
}

func (d *dateRange) validate() error {
	if err := validation.ValidateDateRange(d.start, d.end); err != nil {
		return clierr.New(clierr.Validation, err.Error(), err)
	}
	return nil
}

// analysisOutcome is the part every model reports.
type analysisOutcome struct {
	Symbol     string
	Signal     string
	Confidence float64
	Detail     string
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run physics-based analyses on market data",
	}
	cmd.AddCommand(
		harmonicCmd(),
		waveCmd(),
		thermoCmd(),
		batchCmd(),
	)
	return cmd
}

func symbolArg(arg string) (string, error) {
	symbol, err := validation.ValidateSymbol(arg)
	if err != nil {
		return "", clierr.New(clierr.Validation, err.Error(), err)
	}
	return symbol, nil
}

func harmonicCmd() *cobra.Command {
	var dates dateRange
	var damping, frequency float64
	var days int
	var basic, asJSON bool

	cmd := &cobra.Command{
		Use:   "harmonic SYMBOL",
		Short: "Fit a damped harmonic oscillator to the price series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := symbolArg(args[0])
			if err != nil {
				return err
			}
			api, err := newAPIClient()
			if err != nil {
				return err
			}

			if basic {
				res, err := api.BasicHarmonic(cmd.Context(), symbol)
				if err != nil {
					return clierr.FromAPI("Harmonic analysis of "+symbol, err)
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				renderBasicHarmonic(cmd, res)
				return nil
			}

			if err := dates.validate(); err != nil {
				return err
			}
			req := client.HarmonicRequest{Symbol: symbol, StartDate: dates.start, EndDate: dates.end}
			if cmd.Flags().Changed("damping") {
				req.DampingFactor = &damping
			}
			if cmd.Flags().Changed("frequency") {
				req.Frequency = &frequency
			}
			if cmd.Flags().Changed("days") {
				req.PredictionDays = &days
			}
			res, err := api.HarmonicOscillator(cmd.Context(), req)
			if err != nil {
				return clierr.FromAPI("Harmonic analysis of "+symbol, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			renderHarmonic(cmd, res)
			return nil
		},
	}

	dates.bind(cmd)
	cmd.Flags().Float64Var(&damping, "damping", 0, "Damping factor of the oscillator")
	cmd.Flags().Float64Var(&frequency, "frequency", 0, "Initial frequency guess")
	cmd.Flags().IntVar(&days, "days", 0, "Number of days to predict")
	cmd.Flags().BoolVar(&basic, "basic", false, "Use the viewer analysis with default parameters")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw reply as JSON")
	return cmd
}

func renderHarmonic(cmd *cobra.Command, r *client.HarmonicResult) {
	table := newKeyValueTable(cmd.OutOrStdout())
	table.Append([]string{"Symbol", r.Symbol})
	table.Append([]string{"Window", r.DataStartDate + " .. " + r.DataEndDate})
	table.Append([]string{"Amplitude", formatFloat(r.Amplitude)})
	table.Append([]string{"Frequency", formatFloat(r.Frequency)})
	table.Append([]string{"Damping", formatFloat(r.Damping)})
	table.Append([]string{"Phase", formatFloat(r.Phase)})
	table.Append([]string{"Support", joinFloats(r.SupportLevels)})
	table.Append([]string{"Resistance", joinFloats(r.ResistanceLevels)})
	table.Append([]string{"Signal", r.TradingSignal})
	table.Append([]string{"Confidence", formatConfidence(r.Confidence)})
	table.Render()
	renderPredictions(cmd, r.Predictions)
}

func renderBasicHarmonic(cmd *cobra.Command, r *client.BasicHarmonic) {
	table := newKeyValueTable(cmd.OutOrStdout())
	table.Append([]string{"Symbol", r.Symbol})
	table.Append([]string{"Analysis", r.AnalysisType})
	table.Append([]string{"Range", r.DataRange})
	table.Append([]string{"Current price", formatFloat(r.CurrentPrice)})
	table.Append([]string{"Predicted", joinFloats(r.PredictedPrices)})
	table.Append([]string{"Signals", strings.Join(r.Signals, ", ")})
	if r.SupportLevel != nil {
		table.Append([]string{"Support", formatFloat(*r.SupportLevel)})
	}
	if r.ResistanceLevel != nil {
		table.Append([]string{"Resistance", formatFloat(*r.ResistanceLevel)})
	}
	table.Render()
	if r.Message != "" {
		cmd.Println(r.Message)
	}
}

func waveCmd() *cobra.Command {
	var dates dateRange
	var weeks int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "wave SYMBOL",
		Short: "Decompose the price series into interfering waves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := symbolArg(args[0])
			if err != nil {
				return err
			}
			if err := dates.validate(); err != nil {
				return err
			}
			api, err := newAPIClient()
			if err != nil {
				return err
			}
			res, err := api.WavePhysics(cmd.Context(), client.WaveRequest{
				Symbol: symbol, StartDate: dates.start, EndDate: dates.end, PredictionWeeks: weeks,
			})
			if err != nil {
				return clierr.FromAPI("Wave analysis of "+symbol, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			table := newKeyValueTable(cmd.OutOrStdout())
			table.Append([]string{"Symbol", res.Symbol})
			table.Append([]string{"Window", res.DataStartDate + " .. " + res.DataEndDate})
			table.Append([]string{"Interference", res.InterferencePattern})
			table.Append([]string{"Signal", res.TradingSignal})
			table.Append([]string{"Confidence", formatConfidence(res.Confidence)})
			table.Render()

			components := newTable(cmd.OutOrStdout(), "Period", "Amplitude", "Frequency", "Phase")
			for _, c := range res.WaveComponents {
				components.Append([]string{c.Period, formatFloat(c.Amplitude), fmt.Sprintf("%.3f", c.Frequency), formatFloat(c.Phase)})
			}
			components.Render()
			renderPredictions(cmd, res.Predictions)
			return nil
		},
	}

	dates.bind(cmd)
	cmd.Flags().IntVar(&weeks, "weeks", 0, "Number of weeks to predict")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw reply as JSON")
	return cmd
}

func thermoCmd() *cobra.Command {
	var dates dateRange
	var related []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "thermo SYMBOL",
		Short: "Read the thermodynamic state of the market for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := symbolArg(args[0])
			if err != nil {
				return err
			}
			if err := dates.validate(); err != nil {
				return err
			}
			relatedSymbols := make([]string, 0, len(related))
			for _, r := range related {
				s, err := symbolArg(r)
				if err != nil {
					return err
				}
				relatedSymbols = append(relatedSymbols, s)
			}

			api, err := newAPIClient()
			if err != nil {
				return err
			}
			res, err := api.Thermodynamics(cmd.Context(), client.ThermoRequest{
				Symbol: symbol, StartDate: dates.start, EndDate: dates.end, RelatedSymbols: relatedSymbols,
			})
			if err != nil {
				return clierr.FromAPI("Thermodynamic analysis of "+symbol, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			table := newKeyValueTable(cmd.OutOrStdout())
			table.Append([]string{"Symbol", res.Symbol})
			table.Append([]string{"Window", res.DataStartDate + " .. " + res.DataEndDate})
			table.Append([]string{"Temperature", formatFloat(res.Temperature)})
			table.Append([]string{"Phase state", res.PhaseState})
			table.Append([]string{"Entropy", formatFloat(res.Entropy)})
			table.Append([]string{"Heat capacity", formatFloat(res.HeatCapacity)})
			table.Append([]string{"Signal", res.TradingSignal})
			table.Append([]string{"Confidence", formatConfidence(res.Confidence)})
			table.Render()
			return nil
		},
	}

	dates.bind(cmd)
	cmd.Flags().StringSliceVar(&related, "related", nil, "Related symbols to include, comma separated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw reply as JSON")
	return cmd
}

// batchCmd runs one model over many symbols concurrently. All requests share one
// client, so an expired session is renewed once for the whole batch.
func batchCmd() *cobra.Command {
	var dates dateRange
	var model string
	var workers int

	cmd := &cobra.Command{
		Use:   "batch SYMBOL...",
		Short: "Run one analysis model over several symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateModel(model); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := validation.ValidateWorkerCount(workers); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := dates.validate(); err != nil {
				return err
			}
			symbols := make([]string, 0, len(args))
			for _, a := range args {
				s, err := symbolArg(a)
				if err != nil {
					return err
				}
				symbols = append(symbols, s)
			}
			return runBatch(cmd, model, symbols, dates, workers)
		},
	}

	dates.bind(cmd)
	cmd.Flags().StringVarP(&model, "model", "m", "harmonic", "Analysis model: "+strings.Join(validation.Models, ", "))
	cmd.Flags().IntVarP(&workers, "workers", "w", 5, "Number of concurrent requests [1-20]")
	return cmd
}

func runBatch(cmd *cobra.Command, model string, symbols []string, dates dateRange, workers int) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}
	analyze := analysisFunc(api, model, dates)

	log.Info().Str("model", model).Int("symbols", len(symbols)).Int("workers", workers).Msg("Starting batch analysis")
	bar := newProgressBar(cmd.ErrOrStderr(), len(symbols), "Analyzing...")
	results := pool.Map(cmd.Context(), symbols, workers, func(ctx context.Context, symbol string) (analysisOutcome, error) {
		defer func() { _ = bar.Add(1) }()
		return analyze(ctx, symbol)
	})
	_ = bar.Finish()

	table := newTable(cmd.OutOrStdout(), "Symbol", "Signal", "Confidence", "Detail")
	var firstErr error
	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			table.Append([]string{symbols[i], "-", "-", "error: " + clierr.FromAPI(model+" analysis", r.Err).Message})
			continue
		}
		table.Append([]string{r.Value.Symbol, r.Value.Signal, formatConfidence(r.Value.Confidence), r.Value.Detail})
	}
	table.Render()

	if failed == len(symbols) {
		return clierr.FromAPI("Batch "+model+" analysis", firstErr)
	}
	if failed > 0 {
		cmd.Printf("%d of %d analyses failed.\n", failed, len(symbols))
	}
	return nil
}

func analysisFunc(api *client.Client, model string, dates dateRange) func(context.Context, string) (analysisOutcome, error) {
	switch model {
	case "wave":
		return func(ctx context.Context, symbol string) (analysisOutcome, error) {
			r, err := api.WavePhysics(ctx, client.WaveRequest{Symbol: symbol, StartDate: dates.start, EndDate: dates.end})
			if err != nil {
				return analysisOutcome{}, err
			}
			return analysisOutcome{Symbol: r.Symbol, Signal: r.TradingSignal, Confidence: r.Confidence, Detail: r.InterferencePattern}, nil
		}
	case "thermo":
		return func(ctx context.Context, symbol string) (analysisOutcome, error) {
			r, err := api.Thermodynamics(ctx, client.ThermoRequest{Symbol: symbol, StartDate: dates.start, EndDate: dates.end})
			if err != nil {
				return analysisOutcome{}, err
			}
			return analysisOutcome{Symbol: r.Symbol, Signal: r.TradingSignal, Confidence: r.Confidence, Detail: r.PhaseState}, nil
		}
	default:
		return func(ctx context.Context, symbol string) (analysisOutcome, error) {
			r, err := api.HarmonicOscillator(ctx, client.HarmonicRequest{Symbol: symbol, StartDate: dates.start, EndDate: dates.end})
			if err != nil {
				return analysisOutcome{}, err
			}
			return analysisOutcome{
				Symbol:     r.Symbol,
				Signal:     r.TradingSignal,
				Confidence: r.Confidence,
				Detail:     "amplitude " + formatFloat(r.Amplitude) + ", damping " + formatFloat(r.Damping),
			}, nil
		}
	}
}

func renderPredictions(cmd *cobra.Command, predictions []client.Prediction) {
	if len(predictions) == 0 {
		return
	}
	table := newTable(cmd.OutOrStdout(), "Date", "Predicted price")
	for _, p := range predictions {
		table.Append([]string{p.Date, formatFloat(p.PredictedPrice)})
	}
	table.Render()
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ", ")
}
