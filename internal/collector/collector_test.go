package collector_test

import (
	"sync"
	"testing"
	"time"

	"github.com/torosent/framepulse/internal/collector"
	"github.com/torosent/framepulse/internal/timeline"
)

func TestRecordFramePreservesOrder(t *testing.T) {
	c := collector.New(16 * time.Millisecond)

	c.RecordFrame(10*time.Millisecond, 8*time.Millisecond)
	c.RecordFrame(12*time.Millisecond, 9*time.Millisecond)
	c.RecordFrame(20*time.Millisecond, 17*time.Millisecond)

	samples := c.Samples()
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	want := []timeline.Sample{
		{Build: 10 * time.Millisecond, Raster: 8 * time.Millisecond},
		{Build: 12 * time.Millisecond, Raster: 9 * time.Millisecond},
		{Build: 20 * time.Millisecond, Raster: 17 * time.Millisecond},
	}
	for i, s := range samples {
		if s != want[i] {
			t.Errorf("sample %d = %+v, want %+v", i, s, want[i])
		}
	}
}

func TestSamplesReturnsCopy(t *testing.T) {
	c := collector.New(0)
	c.RecordFrame(5*time.Millisecond, 5*time.Millisecond)

	first := c.Samples()
	first[0].Build = time.Hour

	if got := c.Samples()[0].Build; got != 5*time.Millisecond {
		t.Errorf("internal sample mutated via returned slice: %s", got)
	}
}

func TestLiveStats(t *testing.T) {
	c := collector.New(16 * time.Millisecond)
	c.Start()

	c.RecordFrame(10*time.Millisecond, 8*time.Millisecond)
	c.RecordFrame(30*time.Millisecond, 9*time.Millisecond)
	c.RecordFrame(12*time.Millisecond, 40*time.Millisecond)

	live := c.Live()
	if live.Frames != 3 {
		t.Errorf("frames = %d, want 3", live.Frames)
	}
	if live.MissedFrames != 2 {
		t.Errorf("missed frames = %d, want 2", live.MissedFrames)
	}
	// Histogram values carry 3 significant figures; allow coarse bounds.
	if live.WorstBuildMs < 29 || live.WorstBuildMs > 31 {
		t.Errorf("worst build = %.2fms, want ~30ms", live.WorstBuildMs)
	}
	if live.WorstRasterMs < 39 || live.WorstRasterMs > 41 {
		t.Errorf("worst raster = %.2fms, want ~40ms", live.WorstRasterMs)
	}
}

func TestConcurrentRecording(t *testing.T) {
	c := collector.New(0)

	var wg sync.WaitGroup
	workers := 10
	framesPerWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < framesPerWorker; j++ {
				c.RecordFrame(time.Millisecond, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if got := c.FrameCount(); got != workers*framesPerWorker {
		t.Errorf("frame count = %d, want %d", got, workers*framesPerWorker)
	}
}

func TestCollectorFeedsSummarizer(t *testing.T) {
	c := collector.New(16 * time.Millisecond)
	for _, ms := range []int{10, 12, 15, 20, 25} {
		c.RecordFrame(time.Duration(ms)*time.Millisecond, time.Duration(ms)*time.Millisecond)
	}

	sum, err := timeline.Summarize(c.Samples(), 16*time.Millisecond)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if sum.FrameCount() != 5 {
		t.Errorf("frame count = %d, want 5", sum.FrameCount())
	}
	if sum.Build().Worst != 25*time.Millisecond {
		t.Errorf("worst = %s, want 25ms", sum.Build().Worst)
	}
}
