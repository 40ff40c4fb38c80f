// Package history persists run summaries to a JSON-lines file so successive
// measurement windows can be compared for regressions. Appends take a file
// lock, so parallel harness invocations can share one history file.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/framepulse/internal/timeline"
)

// Entry is one recorded run.
type Entry struct {
	ID         string         `json:"id"`
	RecordedAt time.Time      `json:"recorded_at"`
	Label      string         `json:"label,omitempty"`
	Metrics    map[string]any `json:"metrics"`
}

// Regression is one metric that got worse between two runs.
type Regression struct {
	Metric   string
	Previous float64
	Current  float64
	DeltaPct float64
}

// Aggregate metric keys watched for regressions. Raw per-frame lists and the
// frame count are excluded: more frames is not worse.
var watchedMetrics = []string{
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
}

// NewEntry builds a history entry for a completed run.
func NewEntry(label string, sum *timeline.Summary) Entry {
	return Entry{
		ID:         ulid.Make().String(),
		RecordedAt: time.Now().UTC(),
		Label:      label,
		Metrics:    sum.Metrics(),
	}
}

// Append writes one entry to the history file under an exclusive lock,
// creating the file if needed.
func Append(path string, entry Entry) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock history file: %w", err)
	}
	defer lock.Unlock()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Load reads all entries from the history file, oldest first. A missing
// file yields an empty history, not an error.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("history line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	return entries, nil
}

// Compare reports the watched metrics where cur is worse than prev by more
// than tolerancePct percent. A zero previous value regresses on any
// increase.
func Compare(prev, cur Entry, tolerancePct float64) []Regression {
	if tolerancePct < 0 {
		tolerancePct = 0
	}

	var regressions []Regression
	for _, key := range watchedMetrics {
		before, okBefore := metricValue(prev.Metrics, key)
		after, okAfter := metricValue(cur.Metrics, key)
		if !okBefore || !okAfter {
			continue
		}

		allowed := before * (1 + tolerancePct/100)
		if after <= allowed {
			continue
		}

		deltaPct := 0.0
		if before > 0 {
			deltaPct = (after - before) / before * 100
		}
		regressions = append(regressions, Regression{
			Metric:   key,
			Previous: before,
			Current:  after,
			DeltaPct: deltaPct,
		})
	}

	sort.Slice(regressions, func(i, j int) bool {
		return regressions[i].Metric < regressions[j].Metric
	})
	return regressions
}

// metricValue coerces a metric to float64. Values arrive as int when freshly
// exported and as float64 after a JSON round-trip.
func metricValue(metrics map[string]any, key string) (float64, bool) {
	raw, ok := metrics[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
