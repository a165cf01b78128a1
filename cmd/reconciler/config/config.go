// Package config builds the component configurations from CLI inputs.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"pdf-reconciliation-service/internal/matcher"
	"pdf-reconciliation-service/internal/reconciler"
	"pdf-reconciliation-service/pkg/logger"
)

// MatcherOptions carries the matching flags as given on the command line.
type MatcherOptions struct {
	ToleranceMode    string
	AmountTolerance  float64
	TolerancePercent float64
	MinSharedPrefix  int
	CodeSimilarity   float64
	LastResort       bool
}

// CreateMatcherConfig builds and validates the funnel configuration.
func CreateMatcherConfig(opts MatcherOptions) (*matcher.Config, error) {
	config := matcher.DefaultConfig()
	config.ToleranceMode = matcher.ToleranceMode(opts.ToleranceMode)
	config.AmountToleranceAbs = decimal.NewFromFloat(opts.AmountTolerance)
	config.AmountTolerancePercent = opts.TolerancePercent
	config.MinSharedPrefix = opts.MinSharedPrefix
	config.CodeSimilarityThreshold = opts.CodeSimilarity
	config.EnableLastResort = opts.LastResort

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}
	return config, nil
}

// CreateLoggerConfig builds the logger configuration for the CLI.
func CreateLoggerConfig(verbose bool, format string) *logger.Config {
	config := logger.DefaultConfig()
	if verbose {
		config.Level = logger.DebugLevel
	}
	if format == "json" {
		config.Format = logger.JSONFormat
	}
	return config
}

// CreateEventSink opens the NDJSON event stream. An empty path disables
// events, "-" streams to stdout. The returned closer is nil when nothing
// needs closing.
func CreateEventSink(path string) (reconciler.Sink, io.Closer, error) {
	switch path {
	case "":
		return reconciler.NopSink, nil, nil
	case "-":
		return reconciler.NewNDJSONSink(os.Stdout), nil, nil
	default:
		file, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create events file: %w", err)
		}
		return reconciler.NewNDJSONSink(file), file, nil
	}
}
