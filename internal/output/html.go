package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/framepulse/internal/budget"
	"github.com/torosent/framepulse/internal/timeline"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt  string
	Label        string
	FrameCount   int
	Budget       string
	BudgetMs     float64
	Build        channelView
	Raster       channelView
	CheckSummary *CheckSummary
	FramesJSON   string
}

// CheckSummary aggregates check outcomes for the report header.
type CheckSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []CheckResultJSON
}

// CheckResultJSON is a flattened check result for the template.
type CheckResultJSON struct {
	Check     string
	Metric    string
	Aggregate string
	Operator  string
	Expected  float64
	Actual    float64
	Pass      bool
}

type channelView struct {
	Name    string
	Average string
	P90     string
	P99     string
	Worst   string
	Missed  int
}

type frameSeries struct {
	BuildMs  []float64 `json:"build_ms"`
	RasterMs []float64 `json:"raster_ms"`
}

// GenerateHTMLReport generates a standalone HTML report with an embedded
// per-frame chart.
func GenerateHTMLReport(w io.Writer, sum *timeline.Summary, checks []budget.Result, label string) error {
	var checkSummary *CheckSummary
	if len(checks) > 0 {
		checkSummary = &CheckSummary{
			Total:   len(checks),
			Results: make([]CheckResultJSON, len(checks)),
		}
		for i, r := range checks {
			checkSummary.Results[i] = CheckResultJSON{
				Check:     r.Check.Raw,
				Metric:    r.Check.Metric,
				Aggregate: r.Check.Aggregate,
				Operator:  r.Check.Operator,
				Expected:  r.Check.Value,
				Actual:    r.Actual,
				Pass:      r.Pass,
			}
			if r.Pass {
				checkSummary.Passed++
			} else {
				checkSummary.Failed++
			}
		}
	}

	series := frameSeries{
		BuildMs:  durationsToMs(sum.BuildTimes()),
		RasterMs: durationsToMs(sum.RasterTimes()),
	}
	framesJSON, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal frame series: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt:  time.Now().Format(time.RFC3339),
		Label:        label,
		FrameCount:   sum.FrameCount(),
		Budget:       sum.Budget().String(),
		BudgetMs:     float64(sum.Budget().Microseconds()) / 1000.0,
		Build:        newChannelView("Build", sum.Build()),
		Raster:       newChannelView("Raster", sum.Raster()),
		CheckSummary: checkSummary,
		FramesJSON:   string(framesJSON),
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

func newChannelView(name string, ch timeline.ChannelStats) channelView {
	return channelView{
		Name:    name,
		Average: ch.Average.String(),
		P90:     ch.P90.String(),
		P99:     ch.P99.String(),
		Worst:   ch.Worst.String(),
		Missed:  ch.MissedBudget,
	}
}

func durationsToMs(ds []time.Duration) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = float64(d.Microseconds()) / 1000.0
	}
	return out
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Framepulse Report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(220px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #667eea;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value {
            font-size: 2rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .card.warning {
            border-left-color: #f59e0b;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        .chart-container {
            background: white;
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 30px;
            border: 1px solid #e5e7eb;
        }
        .chart {
            width: 100%;
            height: 300px;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover {
            background: #f8f9fa;
        }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success {
            background: #d1fae5;
            color: #065f46;
        }
        .badge-error {
            background: #fee2e2;
            color: #991b1b;
        }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>⏱ Framepulse Report</h1>
            {{if .Label}}
            <div class="meta" style="margin-top: 5px;">Run: {{.Label}}</div>
            {{end}}
            <div class="meta">Generated: {{.GeneratedAt}} | Frame Budget: {{.Budget}}</div>
        </header>

        <div class="content">
            <!-- Summary Cards -->
            <div class="grid">
                <div class="card">
                    <h3>Frames</h3>
                    <div class="value">{{.FrameCount}}</div>
                </div>
                <div class="card warning">
                    <h3>Missed Build Budget</h3>
                    <div class="value">{{.Build.Missed}}</div>
                </div>
                <div class="card warning">
                    <h3>Missed Raster Budget</h3>
                    <div class="value">{{.Raster.Missed}}</div>
                </div>
            </div>

            <!-- Per-Frame Chart -->
            <div class="section">
                <h2>Per-Frame Timing</h2>
                <div class="chart-container">
                    <div id="frame-chart" class="chart"></div>
                </div>
            </div>

            <!-- Channel Statistics -->
            <div class="section">
                <h2>Channel Statistics</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Channel</th>
                            <th>Average</th>
                            <th>P90</th>
                            <th>P99</th>
                            <th>Worst</th>
                            <th>Missed Budget</th>
                        </tr>
                    </thead>
                    <tbody>
                        <tr>
                            <td><strong>{{.Build.Name}}</strong></td>
                            <td>{{.Build.Average}}</td>
                            <td>{{.Build.P90}}</td>
                            <td>{{.Build.P99}}</td>
                            <td>{{.Build.Worst}}</td>
                            <td>{{.Build.Missed}}</td>
                        </tr>
                        <tr>
                            <td><strong>{{.Raster.Name}}</strong></td>
                            <td>{{.Raster.Average}}</td>
                            <td>{{.Raster.P90}}</td>
                            <td>{{.Raster.P99}}</td>
                            <td>{{.Raster.Worst}}</td>
                            <td>{{.Raster.Missed}}</td>
                        </tr>
                    </tbody>
                </table>
            </div>

            <!-- Checks -->
            {{if .CheckSummary}}
            <div class="section">
                <h2>Checks ({{.CheckSummary.Passed}}/{{.CheckSummary.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Check</th>
                            <th>Metric</th>
                            <th>Expected</th>
                            <th>Actual</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .CheckSummary.Results}}
                        <tr>
                            <td>{{.Check}}</td>
                            <td>{{.Metric}} ({{.Aggregate}})</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}
                                <span class="badge badge-success">✓ PASS</span>
                                {{else}}
                                <span class="badge badge-error">✗ FAIL</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    <script>
        const framesJSON = {{.FramesJSON}};
        const frames = JSON.parse(framesJSON);
        const budgetMs = {{.BudgetMs}};

        if (frames && frames.build_ms.length > 0) {
            const indexes = frames.build_ms.map((_, i) => i + 1);
            const data = [
                indexes,
                frames.build_ms,
                frames.raster_ms,
                indexes.map(() => budgetMs)
            ];

            new uPlot({
                title: "Frame Timing",
                width: document.getElementById('frame-chart').offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Frame" },
                    {
                        label: "Build (ms)",
                        stroke: "#667eea",
                        width: 2
                    },
                    {
                        label: "Raster (ms)",
                        stroke: "#10b981",
                        width: 2
                    },
                    {
                        label: "Budget (ms)",
                        stroke: "#ef4444",
                        dash: [6, 4],
                        width: 1
                    }
                ],
                axes: [
                    { label: "Frame" },
                    { label: "Duration (ms)" }
                ]
            }, data, document.getElementById('frame-chart'));
        }
    </script>
</body>
</html>
`
