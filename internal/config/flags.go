package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "framepulse",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Sample source flags
	flags.String("trace", "", "Path to a recorded trace file to summarize")
	flags.String("trace-format", "", "Trace file format: 'chrometrace' or 'csv' (default chrometrace)")
	flags.String("attach", "", "WebSocket URL of a running application's instrumentation endpoint")
	flags.String("script", "", "Path to a YAML interaction script to drive the application")

	// Measurement window flags
	flags.IntP("frames", "f", 0, "Number of frames to collect before stopping (0 means unlimited)")
	flags.DurationP("duration", "d", 0, "How long to collect frames (e.g. 30s, 1m)")
	flags.Duration("budget", 16*time.Millisecond, "Per-frame time budget")
	flags.Int("actions-per-second", 4, "Script action pacing in attach mode")

	// Check flags
	flags.StringSlice("check", nil, "Performance checks (repeatable, e.g., 'frame_build:p90 < 12')")

	// Output flags
	flags.Bool("json-output", false, "Emit the metric map as JSON")
	flags.Bool("dashboard", false, "Show live terminal dashboard while collecting")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// History flags
	flags.String("history", "", "Path to a JSONL history file for regression tracking")
	flags.String("label", "", "Label to record with this run in the history file")
	flags.Float64("tolerance", 0, "Allowed regression in percent before a metric is flagged")

	// WebSocket flags
	flags.Duration("ws-read-timeout", 30*time.Second, "WebSocket read timeout")
	flags.Duration("ws-write-timeout", 10*time.Second, "WebSocket write timeout")
	flags.Duration("ws-handshake-timeout", 30*time.Second, "WebSocket handshake timeout")

	// Tracing flags
	flags.String("otlp-endpoint", "", "OTLP endpoint for span export (e.g., localhost:4317)")
	flags.String("otlp-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("otlp-insecure", false, "Disable TLS for OTLP export")
	flags.Float64("otlp-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")
	flags.String("service-name", "", "Service name reported on exported spans")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("trace") {
		val, err := fs.GetString("trace")
		if err != nil {
			return err
		}
		cfg.TraceFile = strings.TrimSpace(val)
	}
	if fs.Changed("trace-format") {
		val, err := fs.GetString("trace-format")
		if err != nil {
			return err
		}
		cfg.TraceFormat = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("attach") {
		val, err := fs.GetString("attach")
		if err != nil {
			return err
		}
		cfg.AttachURL = strings.TrimSpace(val)
	}
	if fs.Changed("script") {
		val, err := fs.GetString("script")
		if err != nil {
			return err
		}
		cfg.ScriptFile = strings.TrimSpace(val)
	}
	if fs.Changed("frames") {
		val, err := fs.GetInt("frames")
		if err != nil {
			return err
		}
		cfg.Frames = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("budget") {
		val, err := fs.GetDuration("budget")
		if err != nil {
			return err
		}
		cfg.Budget = val
	}
	if fs.Changed("actions-per-second") {
		val, err := fs.GetInt("actions-per-second")
		if err != nil {
			return err
		}
		cfg.ActionsPerSecond = val
	}
	if fs.Changed("check") {
		val, err := fs.GetStringSlice("check")
		if err != nil {
			return err
		}
		cfg.Checks = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("history") {
		val, err := fs.GetString("history")
		if err != nil {
			return err
		}
		cfg.HistoryFile = strings.TrimSpace(val)
	}
	if fs.Changed("label") {
		val, err := fs.GetString("label")
		if err != nil {
			return err
		}
		cfg.Label = strings.TrimSpace(val)
	}
	if fs.Changed("tolerance") {
		val, err := fs.GetFloat64("tolerance")
		if err != nil {
			return err
		}
		cfg.Tolerance = val
	}
	if fs.Changed("ws-read-timeout") {
		val, err := fs.GetDuration("ws-read-timeout")
		if err != nil {
			return err
		}
		cfg.WebSocket.ReadTimeout = val
	}
	if fs.Changed("ws-write-timeout") {
		val, err := fs.GetDuration("ws-write-timeout")
		if err != nil {
			return err
		}
		cfg.WebSocket.WriteTimeout = val
	}
	if fs.Changed("ws-handshake-timeout") {
		val, err := fs.GetDuration("ws-handshake-timeout")
		if err != nil {
			return err
		}
		cfg.WebSocket.HandshakeTimeout = val
	}
	if fs.Changed("otlp-endpoint") {
		val, err := fs.GetString("otlp-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("otlp-protocol") {
		val, err := fs.GetString("otlp-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("otlp-insecure") {
		val, err := fs.GetBool("otlp-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("otlp-sample-rate") {
		val, err := fs.GetFloat64("otlp-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("service-name") {
		val, err := fs.GetString("service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}

	return nil
}
