package budget

import (
	"strings"
	"testing"
	"time"

	"github.com/torosent/framepulse/internal/timeline"
)

func referenceSummary(t *testing.T) *timeline.Summary {
	t.Helper()
	build := []int{10, 12, 15, 20, 25}
	raster := []int{8, 9, 10, 17, 40}
	samples := make([]timeline.Sample, len(build))
	for i := range build {
		samples[i] = timeline.Sample{
			Build:  time.Duration(build[i]) * time.Millisecond,
			Raster: time.Duration(raster[i]) * time.Millisecond,
		}
	}
	sum, err := timeline.Summarize(samples, 16*time.Millisecond)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	return sum
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Check
		wantError bool
	}{
		{
			name:  "valid p90 build check",
			input: "frame_build:p90 < 12",
			want: Check{
				Metric:    "frame_build",
				Aggregate: "p90",
				Operator:  "<",
				Value:     12,
				Raw:       "frame_build:p90 < 12",
			},
		},
		{
			name:  "valid missed raster check",
			input: "frame_raster:missed == 0",
			want: Check{
				Metric:    "frame_raster",
				Aggregate: "missed",
				Operator:  "==",
				Value:     0,
				Raw:       "frame_raster:missed == 0",
			},
		},
		{
			name:  "valid frame count check",
			input: "frames:count >= 100",
			want: Check{
				Metric:    "frames",
				Aggregate: "count",
				Operator:  ">=",
				Value:     100,
				Raw:       "frames:count >= 100",
			},
		},
		{name: "empty string", input: "", wantError: true},
		{name: "missing aggregate", input: "frame_build < 12", wantError: true},
		{name: "unknown metric", input: "http_req_duration:p90 < 12", wantError: true},
		{name: "unknown aggregate", input: "frame_build:p95 < 12", wantError: true},
		{name: "count only valid for frames", input: "frame_build:count > 1", wantError: true},
		{name: "bad operator", input: "frame_build:p90 ! 12", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMultiple(t *testing.T) {
	checks, err := ParseMultiple([]string{
		"frame_build:p90 < 30",
		"frame_raster:worst <= 40",
	})
	if err != nil {
		t.Fatalf("ParseMultiple failed: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(checks))
	}

	if _, err := ParseMultiple([]string{"frame_build:p90 < 30", "bogus"}); err == nil {
		t.Error("expected error for invalid entry")
	}
	if checks, err := ParseMultiple(nil); err != nil || checks != nil {
		t.Errorf("ParseMultiple(nil) = (%v, %v), want (nil, nil)", checks, err)
	}
}

func TestEvaluate(t *testing.T) {
	sum := referenceSummary(t)

	tests := []struct {
		input      string
		wantPass   bool
		wantActual float64
	}{
		{input: "frame_build:avg < 17", wantPass: true, wantActual: 16.4},
		{input: "frame_build:p90 < 12", wantPass: false, wantActual: 25},
		{input: "frame_build:p99 <= 25", wantPass: true, wantActual: 25},
		{input: "frame_build:worst == 25", wantPass: true, wantActual: 25},
		{input: "frame_build:missed == 2", wantPass: true, wantActual: 2},
		{input: "frame_raster:worst < 32", wantPass: false, wantActual: 40},
		{input: "frame_raster:missed == 0", wantPass: false, wantActual: 2},
		{input: "frames:count >= 5", wantPass: true, wantActual: 5},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			check, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			results := NewEvaluator([]Check{check}).Evaluate(sum)
			if len(results) != 1 {
				t.Fatalf("expected 1 result, got %d", len(results))
			}
			r := results[0]
			if r.Pass != tt.wantPass {
				t.Errorf("pass = %v, want %v (%s)", r.Pass, tt.wantPass, r.Message)
			}
			if r.Actual != tt.wantActual {
				t.Errorf("actual = %g, want %g", r.Actual, tt.wantActual)
			}
			wantMark := "✓"
			if !tt.wantPass {
				wantMark = "✗"
			}
			if !strings.HasPrefix(r.Message, wantMark) {
				t.Errorf("message %q should start with %q", r.Message, wantMark)
			}
		})
	}
}

func TestEvaluateEmpty(t *testing.T) {
	if results := NewEvaluator(nil).Evaluate(referenceSummary(t)); results != nil {
		t.Errorf("expected nil results for no checks, got %v", results)
	}
}
