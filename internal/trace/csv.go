package trace

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/framepulse/internal/timeline"
)

// CSV column names. The header row is required; column order is free.
const (
	csvBuildColumn  = "build_micros"
	csvRasterColumn = "raster_micros"
)

// ParseCSV extracts frame samples from CSV data with one row per frame and
// integer microsecond columns build_micros and raster_micros.
func ParseCSV(data []byte) ([]timeline.Sample, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("CSV trace is empty")
		}
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	buildIdx, rasterIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case csvBuildColumn:
			buildIdx = i
		case csvRasterColumn:
			rasterIdx = i
		}
	}
	if buildIdx < 0 || rasterIdx < 0 {
		return nil, fmt.Errorf("CSV header must contain %q and %q columns", csvBuildColumn, csvRasterColumn)
	}

	var samples []timeline.Sample
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", row, err)
		}

		build, err := parseMicros(record, buildIdx)
		if err != nil {
			return nil, fmt.Errorf("row %d %s: %w", row, csvBuildColumn, err)
		}
		raster, err := parseMicros(record, rasterIdx)
		if err != nil {
			return nil, fmt.Errorf("row %d %s: %w", row, csvRasterColumn, err)
		}
		samples = append(samples, timeline.Sample{Build: build, Raster: raster})
	}

	return samples, nil
}

func parseMicros(record []string, idx int) (time.Duration, error) {
	if idx >= len(record) {
		return 0, fmt.Errorf("column %d missing", idx)
	}
	us, err := strconv.ParseInt(strings.TrimSpace(record[idx]), 10, 64)
	if err != nil {
		return 0, err
	}
	if us < 0 {
		return 0, fmt.Errorf("duration must be >= 0, got %d", us)
	}
	return time.Duration(us) * time.Microsecond, nil
}
