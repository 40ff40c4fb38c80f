package trace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/framepulse/internal/timeline"
)

const sampleTrace = `{
	"traceEvents": [
		{"name": "Frame.Build", "ph": "X", "ts": 1000, "dur": 10000},
		{"name": "Frame.Raster", "ph": "X", "ts": 11000, "dur": 8000},
		{"name": "GC", "ph": "X", "ts": 12000, "dur": 500},
		{"name": "Frame.Raster", "ph": "X", "ts": 40000, "dur": 17000},
		{"name": "Frame.Build", "ph": "X", "ts": 30000, "dur": 20000},
		{"name": "Frame.Build", "ph": "B", "ts": 60000}
	]
}`

func TestParseChromeTrace(t *testing.T) {
	samples, err := ParseChromeTrace([]byte(sampleTrace))
	if err != nil {
		t.Fatalf("ParseChromeTrace failed: %v", err)
	}

	want := []timeline.Sample{
		{Build: 10 * time.Millisecond, Raster: 8 * time.Millisecond},
		{Build: 20 * time.Millisecond, Raster: 17 * time.Millisecond},
	}
	if len(samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(samples))
	}
	for i, s := range samples {
		if s != want[i] {
			t.Errorf("sample %d = %+v, want %+v", i, s, want[i])
		}
	}
}

func TestParseChromeTraceBareArray(t *testing.T) {
	data := `[
		{"name": "Frame.Build", "ph": "X", "ts": 1, "dur": 5000},
		{"name": "Frame.Raster", "ph": "X", "ts": 2, "dur": 6000}
	]`
	samples, err := ParseChromeTrace([]byte(data))
	if err != nil {
		t.Fatalf("ParseChromeTrace failed: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if samples[0].Raster != 6*time.Millisecond {
		t.Errorf("raster = %s, want 6ms", samples[0].Raster)
	}
}

func TestParseChromeTraceUnbalanced(t *testing.T) {
	data := `[{"name": "Frame.Build", "ph": "X", "ts": 1, "dur": 5000}]`
	if _, err := ParseChromeTrace([]byte(data)); err == nil {
		t.Fatal("expected error for unbalanced build/raster events")
	}
}

func TestParseChromeTraceNotArray(t *testing.T) {
	if _, err := ParseChromeTrace([]byte(`{"foo": 1}`)); err == nil {
		t.Fatal("expected error for non-array trace")
	}
}

func TestParseCSV(t *testing.T) {
	data := "raster_micros,build_micros\n8000,10000\n9000, 12000\n40000,25000\n"
	samples, err := ParseCSV([]byte(data))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[1].Build != 12*time.Millisecond || samples[1].Raster != 9*time.Millisecond {
		t.Errorf("sample 1 = %+v, want build 12ms raster 9ms", samples[1])
	}
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty file", data: ""},
		{name: "missing columns", data: "a,b\n1,2\n"},
		{name: "non-numeric value", data: "build_micros,raster_micros\nten,8000\n"},
		{name: "negative value", data: "build_micros,raster_micros\n-1,8000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCSV([]byte(tt.data)); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestLoadDispatchesOnFormat(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "run.trace.json")
	if err := os.WriteFile(jsonPath, []byte(sampleTrace), 0o644); err != nil {
		t.Fatal(err)
	}
	csvPath := filepath.Join(dir, "run.csv")
	if err := os.WriteFile(csvPath, []byte("build_micros,raster_micros\n10000,8000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if samples, err := Load(jsonPath, FormatChromeTrace); err != nil || len(samples) != 2 {
		t.Errorf("Load chrometrace = (%d, %v), want 2 samples", len(samples), err)
	}
	// Empty format defaults to chrometrace.
	if samples, err := Load(jsonPath, ""); err != nil || len(samples) != 2 {
		t.Errorf("Load default = (%d, %v), want 2 samples", len(samples), err)
	}
	if samples, err := Load(csvPath, FormatCSV); err != nil || len(samples) != 1 {
		t.Errorf("Load csv = (%d, %v), want 1 sample", len(samples), err)
	}

	if _, err := Load(csvPath, "har"); err == nil || !strings.Contains(err.Error(), "unsupported trace format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json"), FormatChromeTrace); err == nil {
		t.Error("expected error for missing file")
	}
}
