package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/torosent/framepulse/internal/budget"
	"github.com/torosent/framepulse/internal/history"
	"github.com/torosent/framepulse/internal/timeline"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, sum *timeline.Summary, checks []budget.Result) {
	fmt.Fprintln(w, "\n--- Frame Timing Summary ---")
	fmt.Fprintf(w, "Frames:            %d\n", sum.FrameCount())
	fmt.Fprintf(w, "Frame Budget:      %s\n", sum.Budget())

	printChannel(w, "Build", sum.Build())
	printChannel(w, "Raster", sum.Raster())

	if len(checks) > 0 {
		fmt.Fprintln(w, "\nChecks:")
		for _, result := range checks {
			fmt.Fprintf(w, "  %s\n", result.Message)
		}
	}
}

func printChannel(w io.Writer, name string, ch timeline.ChannelStats) {
	fmt.Fprintf(w, "\n%s:\n", name)
	fmt.Fprintf(w, "  Average:         %s\n", ch.Average)
	fmt.Fprintf(w, "  P90:             %s\n", ch.P90)
	fmt.Fprintf(w, "  P99:             %s\n", ch.P99)
	fmt.Fprintf(w, "  Worst:           %s\n", ch.Worst)
	fmt.Fprintf(w, "  Missed Budget:   %d\n", ch.MissedBudget)
}

// PrintJSONReport outputs the exported metric map as JSON. encoding/json
// writes map keys in sorted order, so repeated exports of the same summary
// are byte-identical.
func PrintJSONReport(w io.Writer, sum *timeline.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sum.Metrics())
}

// PrintRegressions outputs the metrics that got worse compared to a previous
// run from the history file.
func PrintRegressions(w io.Writer, previous history.Entry, regressions []history.Regression) {
	if len(regressions) == 0 {
		return
	}
	fmt.Fprintf(w, "\nRegressions vs run %s (%s):\n", previous.ID, previous.RecordedAt.Format(time.RFC3339))
	for _, r := range regressions {
		fmt.Fprintf(w, "  %s: %.3f -> %.3f (+%.1f%%)\n", r.Metric, r.Previous, r.Current, r.DeltaPct)
	}
}
