package offload

import (
	"testing"
	"time"
)

// fakeClock advances only when told to, making rate math deterministic
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTrackerBegin(t *testing.T) {
	clock := newFakeClock()
	tr := newProgressTracker(clock.now)
	tr.begin(1000, 10)

	p := tr.snapshot()
	if p.TotalBytes != 1000 || p.PendingBytes != 1000 {
		t.Errorf("unexpected byte counters: %+v", p)
	}
	if p.SegmentsTotal != 10 || p.SegmentsPending != 10 {
		t.Errorf("unexpected segment counters: %+v", p)
	}
	if p.TransferredBytes != 0 || p.SegmentsCompleted != 0 {
		t.Errorf("fresh tracker must start at zero: %+v", p)
	}
}

func TestTrackerSegmentCompletedInvariants(t *testing.T) {
	clock := newFakeClock()
	tr := newProgressTracker(clock.now)
	tr.begin(1000, 10)

	clock.advance(2 * time.Second)
	tr.segmentCompleted("seg-1", 100)
	clock.advance(2 * time.Second)
	tr.segmentCompleted("seg-2", 100)

	p := tr.snapshot()
	if p.TransferredBytes != 200 {
		t.Errorf("expected 200 transferred, got %d", p.TransferredBytes)
	}
	if p.PendingBytes != p.TotalBytes-p.TransferredBytes {
		t.Errorf("pending bytes invariant broken: %+v", p)
	}
	if p.SegmentsPending != p.SegmentsTotal-p.SegmentsCompleted {
		t.Errorf("pending segments invariant broken: %+v", p)
	}
	if p.CurrentSegmentID != "seg-2" {
		t.Errorf("expected current segment seg-2, got %s", p.CurrentSegmentID)
	}
}

func TestTrackerAverageRate(t *testing.T) {
	clock := newFakeClock()
	tr := newProgressTracker(clock.now)
	tr.begin(1000, 10)

	clock.advance(4 * time.Second)
	tr.segmentCompleted("seg-1", 400)

	p := tr.snapshot()
	if p.AverageBytesPerSecond != 100.0 {
		t.Errorf("expected 100 B/s average, got %f", p.AverageBytesPerSecond)
	}
	if p.EstimatedTimeRemaining() != 6*time.Second {
		t.Errorf("expected 6s ETA, got %v", p.EstimatedTimeRemaining())
	}
}

func TestTrackerRateGatedByMinimumWindow(t *testing.T) {
	clock := newFakeClock()
	tr := newProgressTracker(clock.now)
	tr.begin(1000, 10)

	clock.advance(100 * time.Millisecond)
	tr.segmentCompleted("seg-1", 100)

	p := tr.snapshot()
	if p.AverageBytesPerSecond != 0 {
		t.Errorf("average rate must stay 0 inside the minimum window, got %f", p.AverageBytesPerSecond)
	}
}

func TestTrackerPauseExcludedFromRate(t *testing.T) {
	clock := newFakeClock()
	tr := newProgressTracker(clock.now)
	tr.begin(1000, 10)

	clock.advance(2 * time.Second)
	tr.segmentCompleted("seg-1", 200)

	tr.pause()
	clock.advance(1 * time.Minute)
	tr.resume()

	clock.advance(2 * time.Second)
	tr.segmentCompleted("seg-2", 200)

	p := tr.snapshot()
	if p.AverageBytesPerSecond != 100.0 {
		t.Errorf("paused time must not dilute the average, got %f", p.AverageBytesPerSecond)
	}
}

func TestTrackerSegmentFailed(t *testing.T) {
	clock := newFakeClock()
	tr := newProgressTracker(clock.now)
	tr.begin(1000, 10)

	tr.segmentFailed("seg-1")
	tr.segmentFailed("seg-1")

	p := tr.snapshot()
	if p.SegmentsFailed != 2 {
		t.Errorf("expected 2 failed attempts, got %d", p.SegmentsFailed)
	}
	if p.SegmentsCompleted != 0 {
		t.Errorf("failed attempts must not complete segments")
	}
}

func TestTrackerTransferredCappedAtTotal(t *testing.T) {
	clock := newFakeClock()
	tr := newProgressTracker(clock.now)
	tr.begin(100, 1)

	clock.advance(time.Second)
	tr.segmentCompleted("seg-1", 500)

	p := tr.snapshot()
	if p.TransferredBytes != 100 {
		t.Errorf("transferred must be capped at total, got %d", p.TransferredBytes)
	}
	if p.PendingBytes != 0 {
		t.Errorf("expected 0 pending, got %d", p.PendingBytes)
	}
	if p.ProgressPercent() != 100.0 {
		t.Errorf("expected 100%%, got %f", p.ProgressPercent())
	}
}
