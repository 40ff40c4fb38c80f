package timeline

import (
	"errors"
	"slices"
	"time"
)

// DefaultFrameBudget is the per-frame time budget for a 60 Hz refresh rate.
// Frames that take longer than this to build or rasterize are counted as
// missed.
const DefaultFrameBudget = 16 * time.Millisecond

// ErrNoSamples is returned when a summary is requested for an empty sample
// sequence. An empty window is a usage error, not a degenerate zero-summary.
var ErrNoSamples = errors.New("timeline: cannot summarize zero frame samples")

// Sample is one measured frame: the duration of its build phase and of its
// rasterization phase. Both values are non-negative and immutable once
// recorded.
type Sample struct {
	Build  time.Duration
	Raster time.Duration
}

// ChannelStats holds the derived statistics for one measured frame phase.
type ChannelStats struct {
	Average      time.Duration
	P90          time.Duration
	P99          time.Duration
	Worst        time.Duration
	MissedBudget int
}

// Summary is the immutable digest of one measurement window. All derived
// statistics are computed at construction time and never recomputed; a
// Summary is safe for concurrent readers.
type Summary struct {
	budget time.Duration

	// Per-channel durations in original input order.
	buildTimes  []time.Duration
	rasterTimes []time.Duration

	build  ChannelStats
	raster ChannelStats
}

// Summarize reduces an ordered, non-empty sequence of frame samples into a
// Summary. budget is the per-frame time budget used for the missed-budget
// counts; values <= 0 fall back to DefaultFrameBudget. The input slice is
// not retained or mutated.
func Summarize(samples []Sample, budget time.Duration) (*Summary, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if budget <= 0 {
		budget = DefaultFrameBudget
	}

	buildTimes := make([]time.Duration, len(samples))
	rasterTimes := make([]time.Duration, len(samples))
	for i, s := range samples {
		buildTimes[i] = s.Build
		rasterTimes[i] = s.Raster
	}

	return &Summary{
		budget:      budget,
		buildTimes:  buildTimes,
		rasterTimes: rasterTimes,
		build:       summarizeChannel(buildTimes, budget),
		raster:      summarizeChannel(rasterTimes, budget),
	}, nil
}

func summarizeChannel(values []time.Duration, budget time.Duration) ChannelStats {
	sorted := make([]time.Duration, len(values))
	copy(sorted, values)
	slices.Sort(sorted)

	var sum time.Duration
	for _, v := range values {
		sum += v
	}

	return ChannelStats{
		Average:      sum / time.Duration(len(values)),
		P90:          valueAtPercentile(sorted, 0.90),
		P99:          valueAtPercentile(sorted, 0.99),
		Worst:        sorted[len(sorted)-1],
		MissedBudget: countAbove(sorted, budget),
	}
}

// FrameCount returns the number of frames in the window.
func (s *Summary) FrameCount() int { return len(s.buildTimes) }

// Budget returns the per-frame time budget the summary was computed with.
func (s *Summary) Budget() time.Duration { return s.budget }

// Build returns the derived statistics for the frame build phase.
func (s *Summary) Build() ChannelStats { return s.build }

// Raster returns the derived statistics for the frame rasterization phase.
func (s *Summary) Raster() ChannelStats { return s.raster }

// BuildTimes returns the per-frame build durations in original input order.
func (s *Summary) BuildTimes() []time.Duration {
	return slices.Clone(s.buildTimes)
}

// RasterTimes returns the per-frame rasterization durations in original
// input order.
func (s *Summary) RasterTimes() []time.Duration {
	return slices.Clone(s.rasterTimes)
}

// Metrics exports the digest as a flat mapping of stable metric names to
// numeric values: aggregates in milliseconds, counts as plain integers, and
// the two raw per-frame sequences as integer microseconds in input order.
// The key set and units are the wire contract with downstream reporting
// tooling.
func (s *Summary) Metrics() map[string]any {
	return map[string]any{
		"average_frame_build_time_millis":              millis(s.build.Average),
		"90th_percentile_frame_build_time_millis":      millis(s.build.P90),
		"99th_percentile_frame_build_time_millis":      millis(s.build.P99),
		"worst_frame_build_time_millis":                millis(s.build.Worst),
		"missed_frame_build_budget_count":              s.build.MissedBudget,
		"average_frame_rasterizer_time_millis":         millis(s.raster.Average),
		"90th_percentile_frame_rasterizer_time_millis": millis(s.raster.P90),
		"99th_percentile_frame_rasterizer_time_millis": millis(s.raster.P99),
		"worst_frame_rasterizer_time_millis":           millis(s.raster.Worst),
		"missed_frame_rasterizer_budget_count":         s.raster.MissedBudget,
		"frame_count":                                  len(s.buildTimes),
		"frame_build_times":                            micros(s.buildTimes),
		"frame_rasterizer_times":                       micros(s.rasterTimes),
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func micros(values []time.Duration) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = v.Microseconds()
	}
	return out
}
