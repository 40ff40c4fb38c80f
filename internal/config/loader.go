package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// If no arguments provided and no config file, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		ActionsPerSecond: 4,
		ConfigFile:       configPath,
		WebSocket: WebSocketConfig{
			HandshakeTimeout: 30 * time.Second,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     10 * time.Second,
		},
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.TraceFile = strings.TrimSpace(cfg.TraceFile)
	cfg.AttachURL = strings.TrimSpace(cfg.AttachURL)
	cfg.ScriptFile = strings.TrimSpace(cfg.ScriptFile)
	cfg.TraceFormat = strings.ToLower(strings.TrimSpace(cfg.TraceFormat))

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "trace", "trace_file", "trace-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		cfg.TraceFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "traceformat", "trace_format", "trace-format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("traceFormat: %w", err)
		}
		cfg.TraceFormat = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "attach", "attach_url", "attach-url"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("attach: %w", err)
		}
		cfg.AttachURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "script", "script_file", "script-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("script: %w", err)
		}
		cfg.ScriptFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "frames"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("frames: %w", err)
		}
		cfg.Frames = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "budget"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("budget: %w", err)
		}
		cfg.Budget = dur
	}

	if raw, ok := lookupSetting(settings, "actionspersecond", "actions_per_second", "actions-per-second"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("actionsPerSecond: %w", err)
		}
		cfg.ActionsPerSecond = val
	}

	if raw, ok := lookupSetting(settings, "checks"); ok {
		checks, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("checks: %w", err)
		}
		cfg.Checks = checks
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "history", "history_file", "history-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		cfg.HistoryFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "label"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("label: %w", err)
		}
		cfg.Label = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "tolerance"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("tolerance: %w", err)
		}
		cfg.Tolerance = val
	}

	if raw, ok := lookupSetting(settings, "websocket"); ok {
		ws, err := parseWebSocketConfig(raw)
		if err != nil {
			return fmt.Errorf("websocket: %w", err)
		}
		applyWebSocketConfig(&cfg.WebSocket, ws)
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracingConfig(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		applyTracingConfig(&cfg.Tracing, tracing)
	}

	return nil
}

type parsedWebSocket struct {
	handshakeTimeout *time.Duration
	readTimeout      *time.Duration
	writeTimeout     *time.Duration
}

func parseWebSocketConfig(value interface{}) (parsedWebSocket, error) {
	var ws parsedWebSocket
	if value == nil {
		return ws, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return ws, err
	}
	if raw, ok := lookupSetting(entry, "handshaketimeout", "handshake_timeout", "handshake-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return ws, fmt.Errorf("handshake_timeout: %w", err)
		}
		ws.handshakeTimeout = &dur
	}
	if raw, ok := lookupSetting(entry, "readtimeout", "read_timeout", "read-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return ws, fmt.Errorf("read_timeout: %w", err)
		}
		ws.readTimeout = &dur
	}
	if raw, ok := lookupSetting(entry, "writetimeout", "write_timeout", "write-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return ws, fmt.Errorf("write_timeout: %w", err)
		}
		ws.writeTimeout = &dur
	}
	return ws, nil
}

func applyWebSocketConfig(dst *WebSocketConfig, src parsedWebSocket) {
	if src.handshakeTimeout != nil {
		dst.HandshakeTimeout = *src.handshakeTimeout
	}
	if src.readTimeout != nil {
		dst.ReadTimeout = *src.readTimeout
	}
	if src.writeTimeout != nil {
		dst.WriteTimeout = *src.writeTimeout
	}
}

type parsedTracing struct {
	endpoint    *string
	protocol    *string
	serviceName *string
	sampleRate  *float64
	insecure    *bool
}

func parseTracingConfig(value interface{}) (parsedTracing, error) {
	var tc parsedTracing
	if value == nil {
		return tc, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return tc, err
	}
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return tc, fmt.Errorf("endpoint: %w", err)
		}
		trimmed := strings.TrimSpace(val)
		tc.endpoint = &trimmed
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return tc, fmt.Errorf("protocol: %w", err)
		}
		lowered := strings.ToLower(strings.TrimSpace(val))
		tc.protocol = &lowered
	}
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return tc, fmt.Errorf("service_name: %w", err)
		}
		trimmed := strings.TrimSpace(val)
		tc.serviceName = &trimmed
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return tc, fmt.Errorf("sample_rate: %w", err)
		}
		tc.sampleRate = &val
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return tc, fmt.Errorf("insecure: %w", err)
		}
		tc.insecure = &val
	}
	return tc, nil
}

func applyTracingConfig(dst *TracingConfig, src parsedTracing) {
	if src.endpoint != nil {
		dst.Endpoint = *src.endpoint
	}
	if src.protocol != nil && *src.protocol != "" {
		dst.Protocol = *src.protocol
	}
	if src.serviceName != nil {
		dst.ServiceName = *src.serviceName
	}
	if src.sampleRate != nil {
		dst.SampleRate = *src.sampleRate
	}
	if src.insecure != nil {
		dst.Insecure = *src.insecure
	}
}
