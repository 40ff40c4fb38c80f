package driver

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported script operations.
const (
	OpTap    = "tap"
	OpScroll = "scroll"
	OpWait   = "wait"
)

// Duration wraps time.Duration with YAML support for both "250ms" strings
// and plain numbers (interpreted as seconds).
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("invalid duration value on line %d", value.Line)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Step is one scripted interaction.
type Step struct {
	Op     string   `yaml:"op"`
	Target string   `yaml:"target,omitempty"`
	Amount float64  `yaml:"amount,omitempty"`
	For    Duration `yaml:"for,omitempty"`
}

// Script is an ordered list of interactions to drive the application
// through while frames are being recorded.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// LoadScript reads and validates a YAML script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

// Validate checks every step for a supported operation and required fields.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script has no steps")
	}
	for i, step := range s.Steps {
		switch strings.ToLower(strings.TrimSpace(step.Op)) {
		case OpTap:
			if strings.TrimSpace(step.Target) == "" {
				return fmt.Errorf("steps[%d]: tap requires a target", i)
			}
		case OpScroll:
			if strings.TrimSpace(step.Target) == "" {
				return fmt.Errorf("steps[%d]: scroll requires a target", i)
			}
			if step.Amount == 0 {
				return fmt.Errorf("steps[%d]: scroll requires a non-zero amount", i)
			}
		case OpWait:
			if step.For.Std() <= 0 {
				return fmt.Errorf("steps[%d]: wait requires a positive duration", i)
			}
		case "":
			return fmt.Errorf("steps[%d]: op is required", i)
		default:
			return fmt.Errorf("steps[%d]: unsupported op %q (use tap, scroll, or wait)", i, step.Op)
		}
	}
	return nil
}
