// Package budget evaluates performance assertions against a frame timing
// summary, for pass/fail gating in CI and regression dashboards.
package budget

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/framepulse/internal/timeline"
)

// Check represents a performance assertion that can pass or fail.
type Check struct {
	Metric    string  // e.g., "frame_build", "frame_raster", "frames"
	Aggregate string  // e.g., "p90", "p99", "avg", "worst", "missed", "count"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The value to compare against
	Raw       string  // Original check string for display
}

// Result represents the outcome of evaluating a check.
type Result struct {
	Check   Check
	Actual  float64
	Pass    bool
	Message string
}

// Evaluator evaluates checks against a summary.
type Evaluator struct {
	checks []Check
}

// NewEvaluator creates a new check evaluator.
func NewEvaluator(checks []Check) *Evaluator {
	return &Evaluator{checks: checks}
}

// Evaluate runs all checks against the provided summary.
func (e *Evaluator) Evaluate(sum *timeline.Summary) []Result {
	if len(e.checks) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.checks))
	for _, c := range e.checks {
		results = append(results, evaluateOne(c, sum))
	}
	return results
}

func evaluateOne(c Check, sum *timeline.Summary) Result {
	actual, err := extractValue(c, sum)
	if err != nil {
		return Result{
			Check:   c,
			Pass:    false,
			Message: fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, c.Operator, c.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Check:   c,
		Actual:  actual,
		Pass:    pass,
		Message: fmt.Sprintf("%s %s: %.2f %s %.2f", status, c.Raw, actual, c.Operator, c.Value),
	}
}

// Parse parses a check string into a Check struct.
// Supported formats:
//   - "frame_build:p90 < 12"      (build-phase percentile in ms)
//   - "frame_build:avg < 8"       (average build time in ms)
//   - "frame_raster:worst < 32"   (worst raster time in ms)
//   - "frame_raster:missed == 0"  (frames over the budget, count)
//   - "frames:count >= 100"       (total frames in the window)
func Parse(s string) (Check, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Check{}, fmt.Errorf("empty check string")
	}

	// Pattern: metric:aggregate operator value
	pattern := regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Check{}, fmt.Errorf("invalid check format: %q (expected metric:aggregate operator value, e.g., 'frame_build:p90 < 12')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]

	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Check{}, fmt.Errorf("invalid check value %q: %v", matches[4], err)
	}

	if !isValidMetric(metric) {
		return Check{}, fmt.Errorf("unsupported metric: %q (supported: frame_build, frame_raster, frames)", metric)
	}
	if !isValidAggregate(metric, aggregate) {
		return Check{}, fmt.Errorf("unsupported aggregate %q for metric %q", aggregate, metric)
	}
	if !isValidOperator(operator) {
		return Check{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Check{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple check strings.
func ParseMultiple(checks []string) ([]Check, error) {
	if len(checks) == 0 {
		return nil, nil
	}

	result := make([]Check, 0, len(checks))
	var errs []string

	for i, s := range checks {
		c, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("check[%d]: %v", i, err))
			continue
		}
		result = append(result, c)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("check parsing errors: %s", strings.Join(errs, "; "))
	}
	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "frame_build", "frame_raster", "frames":
		return true
	}
	return false
}

func isValidAggregate(metric, aggregate string) bool {
	if metric == "frames" {
		return aggregate == "count"
	}
	switch aggregate {
	case "avg", "p90", "p99", "worst", "missed":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractValue(c Check, sum *timeline.Summary) (float64, error) {
	if c.Metric == "frames" {
		return float64(sum.FrameCount()), nil
	}

	var channel timeline.ChannelStats
	switch c.Metric {
	case "frame_build":
		channel = sum.Build()
	case "frame_raster":
		channel = sum.Raster()
	default:
		return 0, fmt.Errorf("unknown metric: %s", c.Metric)
	}

	switch c.Aggregate {
	case "avg":
		return durationMs(channel.Average), nil
	case "p90":
		return durationMs(channel.P90), nil
	case "p99":
		return durationMs(channel.P99), nil
	case "worst":
		return durationMs(channel.Worst), nil
	case "missed":
		return float64(channel.MissedBudget), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for %s", c.Aggregate, c.Metric)
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
