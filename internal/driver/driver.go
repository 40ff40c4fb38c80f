// Package driver executes a scripted interaction against a live application
// while frame timing events stream into the collector. Collection quiesces
// before the caller summarizes: Run only returns once no further samples
// will be recorded.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/framepulse/internal/collector"
	"github.com/torosent/framepulse/internal/devtools"
)

const defaultActionsPerSecond = 4

// Options configures a measurement run.
type Options struct {
	Client    *devtools.Client
	Collector *collector.Collector
	Script    *Script // optional: pure observation when nil

	// Stop conditions. At least one of MaxFrames, Window, or Script must be
	// set so the run is bounded.
	MaxFrames int
	Window    time.Duration

	// Pacing for script steps; defaults to 4 actions per second.
	ActionsPerSecond float64
}

// Driver runs one measurement window.
type Driver struct {
	opt        Options
	scriptDone atomic.Bool
}

// New creates a driver with normalized options.
func New(opt Options) *Driver {
	if opt.ActionsPerSecond <= 0 {
		opt.ActionsPerSecond = defaultActionsPerSecond
	}
	return &Driver{opt: opt}
}

// Run drives the script (if any) and records frame events until the
// application quiesces, the frame target is reached, or the window expires.
func (d *Driver) Run(ctx context.Context) error {
	if d.opt.Client == nil {
		return fmt.Errorf("driver: client is required")
	}
	if d.opt.Collector == nil {
		return fmt.Errorf("driver: collector is required")
	}
	if d.opt.MaxFrames <= 0 && d.opt.Window <= 0 && d.opt.Script == nil {
		return fmt.Errorf("driver: run is unbounded; set a frame target, a window, or a script")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if d.opt.Window > 0 {
		windowCtx, windowCancel := context.WithTimeout(ctx, d.opt.Window)
		ctx = windowCtx
		defer windowCancel()
	}

	scriptErr := make(chan error, 1)
	go func() {
		scriptErr <- d.runScript(ctx)
	}()

	readErr := d.collectEvents(ctx)
	cancel()

	serr := <-scriptErr
	if readErr != nil {
		return readErr
	}
	if serr != nil && !errors.Is(serr, context.Canceled) && !errors.Is(serr, context.DeadlineExceeded) {
		return serr
	}
	return nil
}

func (d *Driver) collectEvents(ctx context.Context) error {
	for {
		ev, err := d.opt.Client.NextEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Window expired or frame target reached: a clean stop.
				return nil
			}
			return fmt.Errorf("collect frame events: %w", err)
		}

		switch ev.Type {
		case devtools.EventFrame:
			d.opt.Collector.RecordFrame(ev.Build, ev.Raster)
			if d.opt.MaxFrames > 0 && d.opt.Collector.FrameCount() >= d.opt.MaxFrames {
				return nil
			}
		case devtools.EventIdle:
			// The app settled after the last command. Only stop once the
			// script finished, so mid-script idles don't truncate the run.
			if d.scriptDone.Load() {
				return nil
			}
		}
	}
}

func (d *Driver) runScript(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Limit(d.opt.ActionsPerSecond), 1)

	if d.opt.Script != nil {
		for i, step := range d.opt.Script.Steps {
			if strings.EqualFold(step.Op, OpWait) {
				select {
				case <-time.After(step.For.Std()):
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			method, params := commandForStep(step)
			if err := d.opt.Client.SendCommand(ctx, method, params); err != nil {
				return fmt.Errorf("steps[%d] %s: %w", i, step.Op, err)
			}
		}
	}

	d.scriptDone.Store(true)
	if d.opt.Script != nil {
		// Ask the app to emit an idle event once outstanding frames settle.
		return d.opt.Client.SendCommand(ctx, "window.quiesce", nil)
	}
	return nil
}

func commandForStep(step Step) (string, map[string]any) {
	switch strings.ToLower(strings.TrimSpace(step.Op)) {
	case OpScroll:
		return "input.scroll", map[string]any{"target": step.Target, "amount": step.Amount}
	default:
		return "input.tap", map[string]any{"target": step.Target}
	}
}
