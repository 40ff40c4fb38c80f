package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/framepulse/internal/collector"
)

// RunConfig holds measurement run parameters for display.
type RunConfig struct {
	AttachURL  string        // Instrumentation endpoint of the application under test
	Script     string        // Interaction script path, if any
	Frames     int           // Frame target (0 = unlimited)
	Window     time.Duration // Measurement window (0 = unlimited)
	Budget     time.Duration // Per-frame time budget
	Label      string        // Run label for the history file
	ConfigFile string        // Path to config file if used
}

// Dashboard renders a live terminal UI for frame timing metrics.
type Dashboard struct {
	collector    *collector.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid          *ui.Grid
	frameSparkle  *widgets.SparklineGroup
	buildPara     *widgets.Paragraph
	rasterPara    *widgets.Paragraph
	missedGauge   *widgets.Gauge
	summaryPara   *widgets.Paragraph
	buildHistory  []float64
	rasterHistory []float64
	startTime     time.Time
	runConfig     RunConfig
}

// New creates a new Dashboard.
func New(c *collector.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:     c,
		ctx:           ctx,
		cancel:        cancel,
		shutdownFunc:  shutdownFunc,
		buildHistory:  make([]float64, 0, 120),
		rasterHistory: make([]float64, 0, 120),
		startTime:     time.Now(),
		runConfig:     cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	buildLine := widgets.NewSparkline()
	buildLine.Title = "Build (ms)"
	buildLine.LineColor = ui.ColorGreen
	buildLine.Data = []float64{0}

	rasterLine := widgets.NewSparkline()
	rasterLine.Title = "Raster (ms)"
	rasterLine.LineColor = ui.ColorMagenta
	rasterLine.Data = []float64{0}

	d.frameSparkle = widgets.NewSparklineGroup(buildLine, rasterLine)
	d.frameSparkle.Title = "Frame Timing"
	d.frameSparkle.BorderStyle.Fg = ui.ColorCyan

	d.buildPara = widgets.NewParagraph()
	d.buildPara.Title = "Build Stats"
	d.buildPara.Text = "P90: 0ms\nP99: 0ms\nWorst: 0ms"
	d.buildPara.BorderStyle.Fg = ui.ColorCyan

	d.rasterPara = widgets.NewParagraph()
	d.rasterPara.Title = "Raster Stats"
	d.rasterPara.Text = "P90: 0ms\nP99: 0ms\nWorst: 0ms"
	d.rasterPara.BorderStyle.Fg = ui.ColorCyan

	d.missedGauge = widgets.NewGauge()
	d.missedGauge.Title = "Missed Budget"
	d.missedGauge.Percent = 0
	d.missedGauge.BarColor = ui.ColorRed
	d.missedGauge.BorderStyle.Fg = ui.ColorCyan
	d.missedGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.2,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.45,
			ui.NewCol(1.0, d.frameSparkle),
		),
		ui.NewRow(0.35,
			ui.NewCol(0.35, d.buildPara),
			ui.NewCol(0.35, d.rasterPara),
			ui.NewCol(0.3, d.missedGauge),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			// Check if context is done to avoid blocking
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	live := d.collector.Live()
	elapsed := time.Since(d.startTime)

	d.buildHistory = appendCapped(d.buildHistory, live.P90BuildMs, 120)
	d.rasterHistory = appendCapped(d.rasterHistory, live.P90RasterMs, 120)
	d.frameSparkle.Sparklines[0].Data = d.buildHistory
	d.frameSparkle.Sparklines[1].Data = d.rasterHistory
	d.frameSparkle.Title = fmt.Sprintf(
		"Frame Timing | Build P90: %.2fms | Raster P90: %.2fms",
		live.P90BuildMs,
		live.P90RasterMs,
	)

	d.missedGauge.Percent = missedPercent(live.MissedFrames, live.Frames)
	d.missedGauge.Label = fmt.Sprintf("%d of %d frames", live.MissedFrames, live.Frames)

	d.buildPara.Text = fmt.Sprintf(
		"P90:   %.2fms\nP99:   %.2fms\nWorst: %.2fms",
		live.P90BuildMs,
		live.P99BuildMs,
		live.WorstBuildMs,
	)
	d.rasterPara.Text = fmt.Sprintf(
		"P90:   %.2fms\nP99:   %.2fms\nWorst: %.2fms",
		live.P90RasterMs,
		live.P99RasterMs,
		live.WorstRasterMs,
	)

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Frames: %d | FPS: %.1f",
		d.runConfig.AttachURL,
		d.formatRunParams(),
		elapsed.Round(time.Second),
		live.Frames,
		live.FramesPerSec,
	)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func appendCapped(history []float64, value float64, limit int) []float64 {
	history = append(history, value)
	if len(history) > limit {
		history = history[1:]
	}
	return history
}

func missedPercent(missed int64, frames int) int {
	if frames <= 0 {
		return 0
	}
	percent := int(float64(missed) / float64(frames) * 100)
	if percent > 100 {
		percent = 100
	}
	return percent
}

// formatRunParams formats the run configuration parameters for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Script != "" {
		parts = append(parts, fmt.Sprintf("Script: %s", d.runConfig.Script))
	}
	if d.runConfig.Frames > 0 {
		parts = append(parts, fmt.Sprintf("Frames: %d", d.runConfig.Frames))
	}
	if d.runConfig.Window > 0 {
		parts = append(parts, fmt.Sprintf("Window: %s", d.runConfig.Window))
	}
	if d.runConfig.Budget > 0 {
		parts = append(parts, fmt.Sprintf("Budget: %s", d.runConfig.Budget))
	}
	if d.runConfig.Label != "" {
		parts = append(parts, fmt.Sprintf("Label: %s", d.runConfig.Label))
	}
	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	if len(parts) == 0 {
		return ""
	}

	return strings.Join(parts, " | ")
}
