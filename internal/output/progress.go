package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/framepulse/internal/collector"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector *collector.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(c *collector.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: c,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, progressLine(p.collector.Live()))
		case <-p.done:
			return
		}
	}
}

func progressLine(live collector.LiveStats) string {
	return fmt.Sprintf("\rFrames: %d | FPS: %.1f | Build P90: %.1fms | Raster P90: %.1fms | Missed: %d",
		live.Frames, live.FramesPerSec, live.P90BuildMs, live.P90RasterMs, live.MissedFrames)
}
