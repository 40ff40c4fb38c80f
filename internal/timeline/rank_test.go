package timeline

import (
	"testing"
	"time"
)

func TestNearestRankIndex(t *testing.T) {
	tests := []struct {
		name string
		n    int
		p    float64
		want int
	}{
		{name: "p90 of five rounds up", n: 5, p: 0.90, want: 4},   // round(3.6)
		{name: "p99 of five rounds up", n: 5, p: 0.99, want: 4},   // round(3.96)
		{name: "p50 of five", n: 5, p: 0.50, want: 2},             // round(2.0)
		{name: "p90 of ten", n: 10, p: 0.90, want: 8},             // round(8.1)
		{name: "p99 of one hundred", n: 100, p: 0.99, want: 98},   // round(98.01)
		{name: "single element", n: 1, p: 0.99, want: 0},          // round(0)
		{name: "p0 is the minimum", n: 7, p: 0, want: 0},          // round(0)
		{name: "p100 is the maximum", n: 7, p: 1.0, want: 6},      // round(6)
		{name: "half rounds away from zero", n: 3, p: 0.25, want: 1}, // round(0.5)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nearestRankIndex(tt.n, tt.p); got != tt.want {
				t.Errorf("nearestRankIndex(%d, %g) = %d, want %d", tt.n, tt.p, got, tt.want)
			}
		})
	}
}

func TestValueAtPercentile(t *testing.T) {
	sorted := []time.Duration{
		10 * time.Millisecond,
		12 * time.Millisecond,
		15 * time.Millisecond,
		20 * time.Millisecond,
		25 * time.Millisecond,
	}

	if got := valueAtPercentile(sorted, 0.90); got != 25*time.Millisecond {
		t.Errorf("p90 = %s, want 25ms", got)
	}
	if got := valueAtPercentile(sorted, 0.99); got != 25*time.Millisecond {
		t.Errorf("p99 = %s, want 25ms", got)
	}
	if got := valueAtPercentile(sorted, 0.50); got != 15*time.Millisecond {
		t.Errorf("p50 = %s, want 15ms", got)
	}
}

func TestFirstAbove(t *testing.T) {
	tests := []struct {
		name   string
		sorted []int
		limit  int
		want   int
	}{
		{name: "some exceed", sorted: []int{10, 12, 15, 20, 25}, limit: 16, want: 3},
		{name: "all exceed", sorted: []int{10, 12, 15}, limit: 5, want: 0},
		{name: "none exceed", sorted: []int{10, 12, 15}, limit: 15, want: -1},
		{name: "equal does not qualify", sorted: []int{10, 16, 16, 20}, limit: 16, want: 3},
		{name: "empty", sorted: nil, limit: 1, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstAbove(tt.sorted, tt.limit); got != tt.want {
				t.Errorf("firstAbove(%v, %d) = %d, want %d", tt.sorted, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountAbove(t *testing.T) {
	sorted := []time.Duration{
		10 * time.Millisecond,
		12 * time.Millisecond,
		15 * time.Millisecond,
		20 * time.Millisecond,
		25 * time.Millisecond,
	}

	if got := countAbove(sorted, 16*time.Millisecond); got != 2 {
		t.Errorf("countAbove(16ms) = %d, want 2", got)
	}
	if got := countAbove(sorted, 25*time.Millisecond); got != 0 {
		t.Errorf("countAbove(25ms) = %d, want 0 for the no-exceedance sentinel", got)
	}
	if got := countAbove(sorted, 0); got != 5 {
		t.Errorf("countAbove(0) = %d, want 5", got)
	}
	// Boundary: values exactly equal to the limit are not counted.
	if got := countAbove(sorted, 20*time.Millisecond); got != 1 {
		t.Errorf("countAbove(20ms) = %d, want 1", got)
	}
}
