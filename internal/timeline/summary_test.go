package timeline_test

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/torosent/framepulse/internal/timeline"
)

func msSamples(build, raster []int) []timeline.Sample {
	samples := make([]timeline.Sample, len(build))
	for i := range build {
		samples[i] = timeline.Sample{
			Build:  time.Duration(build[i]) * time.Millisecond,
			Raster: time.Duration(raster[i]) * time.Millisecond,
		}
	}
	return samples
}

func TestSummarizeEmptyInput(t *testing.T) {
	sum, err := timeline.Summarize(nil, timeline.DefaultFrameBudget)
	if !errors.Is(err, timeline.ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
	if sum != nil {
		t.Fatalf("expected no summary object for empty input, got %+v", sum)
	}
}

// The reference scenario: channel values 10, 12, 15, 20, 25 ms against a
// 16 ms budget.
func TestSummarizeReferenceScenario(t *testing.T) {
	samples := msSamples(
		[]int{10, 12, 15, 20, 25},
		[]int{8, 9, 10, 17, 40},
	)

	sum, err := timeline.Summarize(samples, 16*time.Millisecond)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if sum.FrameCount() != 5 {
		t.Errorf("frame count = %d, want 5", sum.FrameCount())
	}

	build := sum.Build()
	if build.Average != 16400*time.Microsecond {
		t.Errorf("build average = %s, want 16.4ms", build.Average)
	}
	if build.P90 != 25*time.Millisecond {
		t.Errorf("build p90 = %s, want 25ms", build.P90)
	}
	if build.P99 != 25*time.Millisecond {
		t.Errorf("build p99 = %s, want 25ms", build.P99)
	}
	if build.Worst != 25*time.Millisecond {
		t.Errorf("build worst = %s, want 25ms", build.Worst)
	}
	if build.MissedBudget != 2 {
		t.Errorf("build missed budget = %d, want 2", build.MissedBudget)
	}

	raster := sum.Raster()
	if raster.Average != 16800*time.Microsecond {
		t.Errorf("raster average = %s, want 16.8ms", raster.Average)
	}
	if raster.P90 != 40*time.Millisecond {
		t.Errorf("raster p90 = %s, want 40ms", raster.P90)
	}
	if raster.P99 != 40*time.Millisecond {
		t.Errorf("raster p99 = %s, want 40ms", raster.P99)
	}
	if raster.Worst != 40*time.Millisecond {
		t.Errorf("raster worst = %s, want 40ms", raster.Worst)
	}
	if raster.MissedBudget != 2 {
		t.Errorf("raster missed budget = %d, want 2", raster.MissedBudget)
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	sum, err := timeline.Summarize([]timeline.Sample{
		{Build: 7 * time.Millisecond, Raster: 21 * time.Millisecond},
	}, 16*time.Millisecond)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	build := sum.Build()
	for name, got := range map[string]time.Duration{
		"average": build.Average,
		"p90":     build.P90,
		"p99":     build.P99,
		"worst":   build.Worst,
	} {
		if got != 7*time.Millisecond {
			t.Errorf("build %s = %s, want 7ms", name, got)
		}
	}
	if build.MissedBudget != 0 {
		t.Errorf("build missed budget = %d, want 0", build.MissedBudget)
	}
	if sum.Raster().MissedBudget != 1 {
		t.Errorf("raster missed budget = %d, want 1", sum.Raster().MissedBudget)
	}
}

func TestSummarizeZeroDurationsAreValid(t *testing.T) {
	sum, err := timeline.Summarize(msSamples([]int{0, 0, 0}, []int{0, 5, 0}), 16*time.Millisecond)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if sum.Build().Worst != 0 {
		t.Errorf("build worst = %s, want 0", sum.Build().Worst)
	}
	if sum.Build().MissedBudget != 0 {
		t.Errorf("build missed budget = %d, want 0", sum.Build().MissedBudget)
	}
}

func TestSummarizeBudgetBoundary(t *testing.T) {
	// Frames exactly on the budget do not count as missed.
	sum, err := timeline.Summarize(msSamples([]int{16, 16, 17}, []int{16, 16, 16}), 16*time.Millisecond)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got := sum.Build().MissedBudget; got != 1 {
		t.Errorf("build missed budget = %d, want 1", got)
	}
	if got := sum.Raster().MissedBudget; got != 0 {
		t.Errorf("raster missed budget = %d, want 0", got)
	}
}

func TestSummarizeDefaultBudget(t *testing.T) {
	sum, err := timeline.Summarize(msSamples([]int{10, 20}, []int{10, 10}), 0)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if sum.Budget() != timeline.DefaultFrameBudget {
		t.Errorf("budget = %s, want %s", sum.Budget(), timeline.DefaultFrameBudget)
	}
	if sum.Build().MissedBudget != 1 {
		t.Errorf("build missed budget = %d, want 1", sum.Build().MissedBudget)
	}
}

func TestPercentileMonotonicity(t *testing.T) {
	inputs := [][]int{
		{3},
		{5, 5, 5, 5},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		{100, 1, 50, 2, 99, 3, 75, 4},
		{0, 0, 1000},
	}
	for _, values := range inputs {
		sum, err := timeline.Summarize(msSamples(values, values), 16*time.Millisecond)
		if err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		for _, ch := range []timeline.ChannelStats{sum.Build(), sum.Raster()} {
			if ch.P90 > ch.P99 {
				t.Errorf("input %v: p90 %s > p99 %s", values, ch.P90, ch.P99)
			}
			if ch.P99 > ch.Worst {
				t.Errorf("input %v: p99 %s > worst %s", values, ch.P99, ch.Worst)
			}
		}
	}
}

func TestMetricsSchema(t *testing.T) {
	sum, err := timeline.Summarize(msSamples([]int{10, 12, 15, 20, 25}, []int{8, 9, 10, 17, 40}), 16*time.Millisecond)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	metrics := sum.Metrics()

	wantKeys := []string{
		"average_frame_build_time_millis",
		"90th_percentile_frame_build_time_millis",
		"99th_percentile_frame_build_time_millis",
		"worst_frame_build_time_millis",
		"missed_frame_build_budget_count",
		"average_frame_rasterizer_time_millis",
		"90th_percentile_frame_rasterizer_time_millis",
		"99th_percentile_frame_rasterizer_time_millis",
		"worst_frame_rasterizer_time_millis",
		"missed_frame_rasterizer_budget_count",
		"frame_count",
		"frame_build_times",
		"frame_rasterizer_times",
	}
	for _, key := range wantKeys {
		if _, ok := metrics[key]; !ok {
			t.Errorf("missing key %q in exported metrics", key)
		}
	}
	if len(metrics) != len(wantKeys) {
		t.Errorf("exported %d keys, want exactly %d", len(metrics), len(wantKeys))
	}

	if got := metrics["average_frame_build_time_millis"].(float64); math.Abs(got-16.4) > 1e-9 {
		t.Errorf("average_frame_build_time_millis = %g, want 16.4", got)
	}
	if got := metrics["worst_frame_rasterizer_time_millis"].(float64); got != 40 {
		t.Errorf("worst_frame_rasterizer_time_millis = %g, want 40", got)
	}
	if got := metrics["missed_frame_build_budget_count"].(int); got != 2 {
		t.Errorf("missed_frame_build_budget_count = %d, want 2", got)
	}
	if got := metrics["frame_count"].(int); got != 5 {
		t.Errorf("frame_count = %d, want 5", got)
	}

	buildTimes := metrics["frame_build_times"].([]int64)
	wantBuild := []int64{10000, 12000, 15000, 20000, 25000}
	if !reflect.DeepEqual(buildTimes, wantBuild) {
		t.Errorf("frame_build_times = %v, want %v (input order, microseconds)", buildTimes, wantBuild)
	}
	rasterTimes := metrics["frame_rasterizer_times"].([]int64)
	wantRaster := []int64{8000, 9000, 10000, 17000, 40000}
	if !reflect.DeepEqual(rasterTimes, wantRaster) {
		t.Errorf("frame_rasterizer_times = %v, want %v (input order, microseconds)", rasterTimes, wantRaster)
	}
}

func TestMetricsExportIsIdempotent(t *testing.T) {
	sum, err := timeline.Summarize(msSamples([]int{10, 12, 15, 20, 25}, []int{8, 9, 10, 17, 40}), 16*time.Millisecond)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	first, err := json.Marshal(sum.Metrics())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(sum.Metrics())
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(first) != string(again) {
			t.Fatalf("export %d differs:\n%s\n%s", i, first, again)
		}
	}
}

func TestRawSequencesAreCopies(t *testing.T) {
	samples := msSamples([]int{10, 20}, []int{5, 6})
	sum, err := timeline.Summarize(samples, 16*time.Millisecond)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	// Mutating the input or a returned slice must not affect the digest.
	samples[0].Build = 999 * time.Millisecond
	got := sum.BuildTimes()
	got[1] = 0

	fresh := sum.BuildTimes()
	if fresh[0] != 10*time.Millisecond || fresh[1] != 20*time.Millisecond {
		t.Errorf("build times mutated: %v", fresh)
	}
}
