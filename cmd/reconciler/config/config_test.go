package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"pdf-reconciliation-service/internal/matcher"
	"pdf-reconciliation-service/internal/reconciler"
	"pdf-reconciliation-service/pkg/logger"
)

func TestCreateMatcherConfig(t *testing.T) {
	tests := []struct {
		name        string
		opts        MatcherOptions
		expectError bool
	}{
		{
			name: "defaults",
			opts: MatcherOptions{
				ToleranceMode:    "absolute",
				AmountTolerance:  0.05,
				TolerancePercent: 2.0,
				MinSharedPrefix:  20,
				CodeSimilarity:   0.6,
				LastResort:       true,
			},
		},
		{
			name: "percent mode",
			opts: MatcherOptions{
				ToleranceMode:    "percent",
				AmountTolerance:  0.05,
				TolerancePercent: 1.0,
				MinSharedPrefix:  20,
				CodeSimilarity:   0.6,
			},
		},
		{
			name: "invalid mode",
			opts: MatcherOptions{
				ToleranceMode:    "relative",
				AmountTolerance:  0.05,
				TolerancePercent: 2.0,
				MinSharedPrefix:  20,
				CodeSimilarity:   0.6,
			},
			expectError: true,
		},
		{
			name: "negative tolerance",
			opts: MatcherOptions{
				ToleranceMode:    "absolute",
				AmountTolerance:  -1.0,
				TolerancePercent: 2.0,
				MinSharedPrefix:  20,
				CodeSimilarity:   0.6,
			},
			expectError: true,
		},
		{
			name: "similarity out of range",
			opts: MatcherOptions{
				ToleranceMode:    "absolute",
				AmountTolerance:  0.05,
				TolerancePercent: 2.0,
				MinSharedPrefix:  20,
				CodeSimilarity:   1.5,
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := CreateMatcherConfig(tt.opts)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if config.ToleranceMode != matcher.ToleranceMode(tt.opts.ToleranceMode) {
				t.Errorf("expected tolerance mode %s, got %s", tt.opts.ToleranceMode, config.ToleranceMode)
			}
			want := decimal.NewFromFloat(tt.opts.AmountTolerance)
			if !config.AmountToleranceAbs.Equal(want) {
				t.Errorf("expected amount tolerance %s, got %s", want, config.AmountToleranceAbs)
			}
			if config.MinSharedPrefix != tt.opts.MinSharedPrefix {
				t.Errorf("expected min shared prefix %d, got %d", tt.opts.MinSharedPrefix, config.MinSharedPrefix)
			}
			if config.EnableLastResort != tt.opts.LastResort {
				t.Errorf("expected last resort %v, got %v", tt.opts.LastResort, config.EnableLastResort)
			}
		})
	}
}

func TestCreateLoggerConfig(t *testing.T) {
	tests := []struct {
		name       string
		verbose    bool
		format     string
		wantLevel  logger.Level
		wantFormat logger.Format
	}{
		{"defaults", false, "text", logger.InfoLevel, logger.TextFormat},
		{"verbose", true, "text", logger.DebugLevel, logger.TextFormat},
		{"json format", false, "json", logger.InfoLevel, logger.JSONFormat},
		{"verbose json", true, "json", logger.DebugLevel, logger.JSONFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := CreateLoggerConfig(tt.verbose, tt.format)

			if config.Level != tt.wantLevel {
				t.Errorf("expected level %s, got %s", tt.wantLevel, config.Level)
			}
			if config.Format != tt.wantFormat {
				t.Errorf("expected format %s, got %s", tt.wantFormat, config.Format)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("logger config should be valid: %v", err)
			}
		})
	}
}

func TestCreateEventSink(t *testing.T) {
	t.Run("empty path disables events", func(t *testing.T) {
		sink, closer, err := CreateEventSink("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sink == nil {
			t.Error("expected a sink even when events are disabled")
		}
		if closer != nil {
			t.Error("expected no closer for the disabled sink")
		}
	})

	t.Run("stdout sink", func(t *testing.T) {
		sink, closer, err := CreateEventSink("-")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sink == nil {
			t.Error("expected a sink for stdout streaming")
		}
		if closer != nil {
			t.Error("stdout must not be closed by the sink")
		}
	})

	t.Run("file sink", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "events.ndjson")

		sink, closer, err := CreateEventSink(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if closer == nil {
			t.Fatal("expected a closer for the file sink")
		}

		sink.Emit(reconciler.Event{Type: reconciler.EventLog, Message: "hello"})
		if err := closer.Close(); err != nil {
			t.Fatalf("failed to close events file: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read events file: %v", err)
		}
		if len(data) == 0 {
			t.Error("expected the emitted event to be written to the file")
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		_, _, err := CreateEventSink(filepath.Join(t.TempDir(), "missing", "events.ndjson"))
		if err == nil {
			t.Error("expected error for an unwritable events path")
		}
	})
}
