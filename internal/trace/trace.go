// Package trace loads frame timing samples from recorded trace files, for
// summarizing runs that were captured outside the harness.
package trace

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/torosent/framepulse/internal/timeline"
)

// Supported trace file formats.
const (
	FormatChromeTrace = "chrometrace"
	FormatCSV         = "csv"
)

// Event names recognized in Chrome-trace-format files. Each frame emits one
// complete event per phase; the i-th build event and the i-th raster event
// (in timestamp order) describe the same frame.
const (
	buildEventName  = "Frame.Build"
	rasterEventName = "Frame.Raster"
)

// Load reads frame samples from path in the given format.
func Load(path, format string) ([]timeline.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace file: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatChromeTrace, "":
		return ParseChromeTrace(data)
	case FormatCSV:
		return ParseCSV(data)
	default:
		return nil, fmt.Errorf("unsupported trace format %q (use %q or %q)", format, FormatChromeTrace, FormatCSV)
	}
}

type phaseEvent struct {
	ts  int64
	dur int64
}

// ParseChromeTrace extracts frame samples from a Chrome-trace-format JSON
// document. Both the bare array form and the object form with a
// "traceEvents" field are accepted. Only complete ("ph":"X") events named
// Frame.Build and Frame.Raster are considered; ts and dur are microseconds.
func ParseChromeTrace(data []byte) ([]timeline.Sample, error) {
	events := gjson.GetBytes(data, "traceEvents")
	if !events.Exists() {
		events = gjson.ParseBytes(data)
	}
	if !events.IsArray() {
		return nil, fmt.Errorf("trace JSON is not an event array")
	}

	var builds, rasters []phaseEvent
	var malformed error
	events.ForEach(func(_, ev gjson.Result) bool {
		if ev.Get("ph").String() != "X" {
			return true
		}
		name := ev.Get("name").String()
		if name != buildEventName && name != rasterEventName {
			return true
		}
		dur := ev.Get("dur")
		if !dur.Exists() || dur.Int() < 0 {
			malformed = fmt.Errorf("event %q has missing or negative dur", name)
			return false
		}
		phase := phaseEvent{ts: ev.Get("ts").Int(), dur: dur.Int()}
		if name == buildEventName {
			builds = append(builds, phase)
		} else {
			rasters = append(rasters, phase)
		}
		return true
	})
	if malformed != nil {
		return nil, malformed
	}

	if len(builds) != len(rasters) {
		return nil, fmt.Errorf("unbalanced trace: %d build events vs %d raster events", len(builds), len(rasters))
	}

	sort.Slice(builds, func(i, j int) bool { return builds[i].ts < builds[j].ts })
	sort.Slice(rasters, func(i, j int) bool { return rasters[i].ts < rasters[j].ts })

	samples := make([]timeline.Sample, len(builds))
	for i := range builds {
		samples[i] = timeline.Sample{
			Build:  time.Duration(builds[i].dur) * time.Microsecond,
			Raster: time.Duration(rasters[i].dur) * time.Microsecond,
		}
	}
	return samples, nil
}
