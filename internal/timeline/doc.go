// Package timeline reduces per-frame timing samples into an immutable
// statistical digest suitable for regression tracking and dashboards.
//
// A measurement window produces one ordered sequence of [Sample] values,
// each carrying the build and rasterization durations of a single rendered
// frame. Once the window has quiesced, the full sequence is handed to
// [Summarize], which computes every derived statistic exactly once:
//
//	sum, err := timeline.Summarize(samples, timeline.DefaultFrameBudget)
//	if err != nil {
//		// timeline.ErrNoSamples: the window captured nothing
//	}
//	metrics := sum.Metrics()
//
// # Statistics
//
// For the build and raster channels independently, a [Summary] holds:
//   - average (duration division, truncating)
//   - p90 and p99 by the nearest-rank method: sorted[round((N-1)*p)]
//   - worst (the channel maximum)
//   - missed-budget count (frames strictly over the frame budget)
//
// Percentiles select existing data points; there is no interpolation
// between ranks, so identical inputs always produce identical digests.
//
// # Export
//
// [Summary.Metrics] returns the flat key-to-value mapping consumed by
// downstream reporting tooling. Key names and units (milliseconds for
// aggregates, integer microseconds for the raw per-frame lists) are a
// compatibility surface and must not drift.
//
// # Concurrency
//
// Summarize is a pure, single-pass computation. A Summary is never mutated
// after construction and is safe for concurrent readers. Collecting samples
// while frames render is the caller's job; see the collector package.
package timeline
