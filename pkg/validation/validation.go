package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	MinWorkers = 1
	MaxWorkers = 20

	// DateLayout is the only date format the API accepts.
	DateLayout = "2006-01-02"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// Models lists the analysis models the API exposes.
var Models = []string{"harmonic", "wave", "thermo"}

// ExportFormats lists the supported export encodings.
var ExportFormats = []string{"json", "csv"}

// ValidateSymbol checks a ticker and returns it upper-cased.
func ValidateSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", fmt.Errorf("symbol cannot be empty")
	}
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("invalid symbol %q: use 1-10 letters, digits, '.' or '-'", symbol)
	}
	return s, nil
}

// ValidateDateRange checks two YYYY-MM-DD dates with start not after end.
// Both empty is allowed and means "server default".
func ValidateDateRange(start, end string) error {
	if start == "" && end == "" {
		return nil
	}
	if start == "" || end == "" {
		return fmt.Errorf("both start and end dates are required when one is given")
	}
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", start)
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", end)
	}
	if from.After(to) {
		return fmt.Errorf("start date %s is after end date %s", start, end)
	}
	return nil
}

func ValidateWorkerCount(workers int) error {
	if workers < MinWorkers || workers > MaxWorkers {
		return fmt.Errorf("worker count must be between %d and %d, got %d", MinWorkers, MaxWorkers, workers)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

func ValidateModel(model string) error {
	return oneOf("model", strings.ToLower(model), Models)
}

func ValidateExportFormat(format string) error {
	return oneOf("export format", strings.ToLower(format), ExportFormats)
}

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %s (must be one of: %s)", field, value, strings.Join(allowed, ", "))
}
