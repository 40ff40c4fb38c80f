package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/framepulse/internal/budget"
	"github.com/torosent/framepulse/internal/collector"
	"github.com/torosent/framepulse/internal/config"
	"github.com/torosent/framepulse/internal/dashboard"
	"github.com/torosent/framepulse/internal/devtools"
	"github.com/torosent/framepulse/internal/driver"
	"github.com/torosent/framepulse/internal/history"
	"github.com/torosent/framepulse/internal/output"
	"github.com/torosent/framepulse/internal/timeline"
	"github.com/torosent/framepulse/internal/trace"
	"github.com/torosent/framepulse/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	checks, err := budget.ParseMultiple(cfg.Checks)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	source := cfg.TraceFile
	if source == "" {
		source = "live"
	}
	runCtx, span := tracing.StartRunSpan(ctx, provider.Tracer(), source)

	samples, err := gatherSamples(runCtx, cfg)
	if err != nil {
		tracing.EndSpan(span, err)
		return err
	}

	sum, err := timeline.Summarize(samples, cfg.EffectiveBudget())
	if err != nil {
		tracing.EndSpan(span, err)
		return err
	}
	tracing.RecordSummary(span, sum)
	tracing.EndSpan(span, nil)

	results := budget.NewEvaluator(checks).Evaluate(sum)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, sum); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, sum, results)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, sum, results, cfg.Label); err != nil {
			return err
		}
	}

	if cfg.HistoryFile != "" {
		if err := recordHistory(cfg, sum); err != nil {
			return err
		}
	}

	failed := 0
	for _, r := range results {
		if !r.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}

// gatherSamples produces the per-frame samples for this run, either by
// parsing a recorded trace file or by attaching to a live application.
func gatherSamples(ctx context.Context, cfg *config.Config) ([]timeline.Sample, error) {
	if cfg.TraceFile != "" {
		return trace.Load(cfg.TraceFile, cfg.TraceFormat)
	}
	return collectLive(ctx, cfg)
}

func collectLive(ctx context.Context, cfg *config.Config) ([]timeline.Sample, error) {
	headers := make(http.Header)
	tracing.InjectHTTPHeaders(ctx, headers)

	client := devtools.NewClient(devtools.Config{
		URL:              cfg.AttachURL,
		Headers:          headers,
		HandshakeTimeout: cfg.WebSocket.HandshakeTimeout,
		ReadTimeout:      cfg.WebSocket.ReadTimeout,
		WriteTimeout:     cfg.WebSocket.WriteTimeout,
	})
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	defer client.Close()

	var script *driver.Script
	if cfg.ScriptFile != "" {
		loaded, err := driver.LoadScript(cfg.ScriptFile)
		if err != nil {
			return nil, err
		}
		script = loaded
	}

	c := collector.New(cfg.EffectiveBudget())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		var err error
		dash, err = dashboard.New(c, dashboard.RunConfig{
			AttachURL:  cfg.AttachURL,
			Script:     cfg.ScriptFile,
			Frames:     cfg.Frames,
			Window:     cfg.Duration,
			Budget:     cfg.EffectiveBudget(),
			Label:      cfg.Label,
			ConfigFile: cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return nil, err
		}
		dash.Start()
		defer dash.Stop()
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && !cfg.Dashboard {
		progress = output.NewProgressReporter(c, progressInterval, os.Stdout)
		progress.Start()
		defer func() {
			progress.Stop()
			fmt.Fprintln(os.Stdout)
		}()
	}

	d := driver.New(driver.Options{
		Client:           client,
		Collector:        c,
		Script:           script,
		MaxFrames:        cfg.Frames,
		Window:           cfg.Duration,
		ActionsPerSecond: float64(cfg.ActionsPerSecond),
	})

	c.Start()
	if err := d.Run(ctx); err != nil {
		return nil, err
	}

	return c.Samples(), nil
}

func writeHTMLReport(path string, sum *timeline.Summary, results []budget.Result, label string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create HTML report: %w", err)
	}

	if err := output.GenerateHTMLReport(f, sum, results, label); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// recordHistory appends this run to the history file and reports metrics
// that regressed compared to the previous run.
func recordHistory(cfg *config.Config, sum *timeline.Summary) error {
	previous, err := history.Load(cfg.HistoryFile)
	if err != nil {
		return err
	}

	entry := history.NewEntry(cfg.Label, sum)
	if err := history.Append(cfg.HistoryFile, entry); err != nil {
		return err
	}

	if len(previous) == 0 {
		return nil
	}
	last := previous[len(previous)-1]
	regressions := history.Compare(last, entry, cfg.Tolerance)
	output.PrintRegressions(os.Stdout, last, regressions)
	return nil
}
