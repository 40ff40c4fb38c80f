// Package collector records per-frame timing samples during a measurement
// window in a thread-safe manner. It keeps the raw input-ordered samples for
// the final digest and feeds two HdrHistograms so progress reporters and the
// dashboard can show live statistics while frames are still arriving.
package collector

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/framepulse/internal/timeline"
)

// Collector accumulates frame samples. Safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	samples    []timeline.Sample
	buildHist  *hdrhistogram.Histogram
	rasterHist *hdrhistogram.Histogram
	budget     time.Duration
	missed     int64
	start      time.Time
}

// LiveStats is a cheap, histogram-backed snapshot for live display. The
// authoritative digest always comes from timeline.Summarize over the raw
// samples once the window has quiesced.
type LiveStats struct {
	Frames        int
	FramesPerSec  float64
	P90BuildMs    float64
	P99BuildMs    float64
	WorstBuildMs  float64
	P90RasterMs   float64
	P99RasterMs   float64
	WorstRasterMs float64
	MissedFrames  int64
}

// New creates a collector. budget is the per-frame time budget used for the
// live missed-frame counter; values <= 0 fall back to the default budget.
func New(budget time.Duration) *Collector {
	if budget <= 0 {
		budget = timeline.DefaultFrameBudget
	}
	// Track frame phases from 1µs up to 10s with 3 significant figures.
	return &Collector{
		buildHist:  hdrhistogram.New(1, 10_000_000, 3),
		rasterHist: hdrhistogram.New(1, 10_000_000, 3),
		budget:     budget,
		start:      time.Now(),
	}
}

// Start marks the beginning of the measurement window for the live
// frames-per-second calculation.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// RecordFrame appends one frame sample. Input order is preserved.
func (c *Collector) RecordFrame(build, raster time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples = append(c.samples, timeline.Sample{Build: build, Raster: raster})
	_ = c.buildHist.RecordValue(clampMicros(c.buildHist, build))
	_ = c.rasterHist.RecordValue(clampMicros(c.rasterHist, raster))
	if build > c.budget || raster > c.budget {
		c.missed++
	}
}

// FrameCount returns the number of frames recorded so far.
func (c *Collector) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

// Samples returns a copy of the recorded samples in input order.
func (c *Collector) Samples() []timeline.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]timeline.Sample, len(c.samples))
	copy(out, c.samples)
	return out
}

// Live computes a snapshot of the current window for progress display.
func (c *Collector) Live() LiveStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := LiveStats{
		Frames:       len(c.samples),
		MissedFrames: c.missed,
	}

	if c.buildHist.TotalCount() > 0 {
		stats.P90BuildMs = float64(c.buildHist.ValueAtQuantile(90)) / 1000.0
		stats.P99BuildMs = float64(c.buildHist.ValueAtQuantile(99)) / 1000.0
		stats.WorstBuildMs = float64(c.buildHist.Max()) / 1000.0
	}
	if c.rasterHist.TotalCount() > 0 {
		stats.P90RasterMs = float64(c.rasterHist.ValueAtQuantile(90)) / 1000.0
		stats.P99RasterMs = float64(c.rasterHist.ValueAtQuantile(99)) / 1000.0
		stats.WorstRasterMs = float64(c.rasterHist.Max()) / 1000.0
	}

	elapsed := time.Since(c.start)
	if elapsed > 0 && len(c.samples) > 0 {
		stats.FramesPerSec = float64(len(c.samples)) / elapsed.Seconds()
	}

	return stats
}

func clampMicros(h *hdrhistogram.Histogram, d time.Duration) int64 {
	us := d.Microseconds()
	if us < h.LowestTrackableValue() {
		us = h.LowestTrackableValue()
	}
	if us > h.HighestTrackableValue() {
		us = h.HighestTrackableValue()
	}
	return us
}
