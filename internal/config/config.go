package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/framepulse/internal/timeline"
	"github.com/torosent/framepulse/internal/trace"
)

type Config struct {
	TraceFile        string          `mapstructure:"trace"`
	TraceFormat      string          `mapstructure:"trace_format"`
	AttachURL        string          `mapstructure:"attach"`
	ScriptFile       string          `mapstructure:"script"`
	Frames           int             `mapstructure:"frames"`
	Duration         time.Duration   `mapstructure:"duration"`
	Budget           time.Duration   `mapstructure:"budget"`
	ActionsPerSecond int             `mapstructure:"actions_per_second"`
	Checks           []string        `mapstructure:"checks"`
	JSONOutput       bool            `mapstructure:"json_output"`
	Dashboard        bool            `mapstructure:"dashboard"`
	HTMLOutput       string          `mapstructure:"html_output"`
	HistoryFile      string          `mapstructure:"history"`
	Label            string          `mapstructure:"label"`
	Tolerance        float64         `mapstructure:"tolerance"`
	ConfigFile       string          `mapstructure:"-"`
	WebSocket        WebSocketConfig `mapstructure:"websocket"`
	Tracing          TracingConfig   `mapstructure:"tracing"`
}

type WebSocketConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
}

// TracingConfig configures OTLP span export for measurement runs.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether span export is configured, either directly or via
// the standard OTEL environment variable.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	hasTrace := strings.TrimSpace(c.TraceFile) != ""
	hasAttach := strings.TrimSpace(c.AttachURL) != ""

	if !hasTrace && !hasAttach {
		issues = append(issues, "either trace or attach is required (use --help for usage information)")
	}
	if hasTrace && hasAttach {
		issues = append(issues, "trace and attach are mutually exclusive")
	}

	if c.TraceFormat != "" {
		switch c.TraceFormat {
		case trace.FormatChromeTrace, trace.FormatCSV:
		default:
			issues = append(issues, fmt.Sprintf("trace-format must be %q or %q, got %q", trace.FormatChromeTrace, trace.FormatCSV, c.TraceFormat))
		}
	}
	if hasTrace {
		if c.ScriptFile != "" {
			issues = append(issues, "script requires attach mode")
		}
		if c.Dashboard {
			issues = append(issues, "dashboard requires attach mode")
		}
	}
	if hasAttach && c.Frames <= 0 && c.Duration <= 0 && strings.TrimSpace(c.ScriptFile) == "" {
		issues = append(issues, "attach mode needs a stop condition: frames, duration, or a script")
	}

	if c.Frames < 0 {
		issues = append(issues, "frames must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Budget < 0 {
		issues = append(issues, "budget must be >= 0")
	}
	if c.ActionsPerSecond < 0 {
		issues = append(issues, "actions-per-second must be >= 0")
	}
	if c.Tolerance < 0 {
		issues = append(issues, "tolerance must be >= 0")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Label != "" && strings.TrimSpace(c.HistoryFile) == "" {
		issues = append(issues, "label requires a history file")
	}

	if c.WebSocket.HandshakeTimeout < 0 {
		issues = append(issues, "websocket: handshake_timeout must be >= 0")
	}
	if c.WebSocket.ReadTimeout < 0 {
		issues = append(issues, "websocket: read_timeout must be >= 0")
	}
	if c.WebSocket.WriteTimeout < 0 {
		issues = append(issues, "websocket: write_timeout must be >= 0")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, "tracing: sample_rate must be between 0.0 and 1.0")
	}
	if c.Tracing.Protocol != "" && c.Tracing.Protocol != "grpc" && c.Tracing.Protocol != "http" {
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

// EffectiveBudget returns the configured frame budget, or the default when
// none was set.
func (c Config) EffectiveBudget() time.Duration {
	if c.Budget > 0 {
		return c.Budget
	}
	return timeline.DefaultFrameBudget
}
