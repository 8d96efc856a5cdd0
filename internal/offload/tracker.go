package offload

import (
	"time"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

// minRateWindow is the minimum elapsed time before throughput averages
// are reported; below it rate figures are too noisy to act on.
const minRateWindow = time.Second

// progressTracker maintains the byte and segment counters of one
// operation and derives throughput and ETA figures on each update.
// It is not safe for concurrent use; the controller serializes access
// under its own mutex. The clock is injectable for deterministic tests.
type progressTracker struct {
	progress models.OffloadProgress
	now      func() time.Time

	// pausedFor accumulates time spent paused so rates reflect actual
	// transfer time
	pausedFor   time.Duration
	pausedSince time.Time
}

func newProgressTracker(now func() time.Time) *progressTracker {
	if now == nil {
		now = time.Now
	}
	return &progressTracker{now: now}
}

// begin resets the tracker for a new operation of the given volume
func (t *progressTracker) begin(totalBytes, segmentsTotal int64) {
	start := t.now()
	t.progress = models.OffloadProgress{
		TotalBytes:      totalBytes,
		PendingBytes:    totalBytes,
		SegmentsTotal:   segmentsTotal,
		SegmentsPending: segmentsTotal,
		StartTime:       start,
		LastUpdate:      start,
	}
	t.pausedFor = 0
	t.pausedSince = time.Time{}
}

// segmentCompleted records a delivered segment and refreshes derived rates
func (t *progressTracker) segmentCompleted(segmentID string, bytes int64) {
	p := &t.progress
	p.TransferredBytes += bytes
	if p.TransferredBytes > p.TotalBytes {
		p.TransferredBytes = p.TotalBytes
	}
	p.SegmentsCompleted++
	p.CurrentSegmentID = segmentID
	t.refresh(bytes)
}

// segmentFailed records a failed segment attempt
func (t *progressTracker) segmentFailed(segmentID string) {
	t.progress.SegmentsFailed++
	t.progress.CurrentSegmentID = segmentID
	t.refresh(0)
}

// setError stores the terminal error message on the progress snapshot
func (t *progressTracker) setError(msg string) {
	t.progress.ErrorMessage = msg
	t.refresh(0)
}

// pause marks the start of a paused interval
func (t *progressTracker) pause() {
	t.pausedSince = t.now()
}

// resume closes the current paused interval
func (t *progressTracker) resume() {
	if !t.pausedSince.IsZero() {
		t.pausedFor += t.now().Sub(t.pausedSince)
		t.pausedSince = time.Time{}
	}
}

// refresh recomputes derived fields after a counter change
func (t *progressTracker) refresh(lastBytes int64) {
	p := &t.progress
	nowTime := t.now()
	sinceLast := nowTime.Sub(p.LastUpdate)
	p.LastUpdate = nowTime
	p.Elapsed = nowTime.Sub(p.StartTime)

	p.PendingBytes = p.TotalBytes - p.TransferredBytes
	p.SegmentsPending = p.SegmentsTotal - p.SegmentsCompleted

	active := p.Elapsed - t.pausedFor
	if !t.pausedSince.IsZero() {
		active -= nowTime.Sub(t.pausedSince)
	}
	if active >= minRateWindow && p.TransferredBytes > 0 {
		p.AverageBytesPerSecond = float64(p.TransferredBytes) / active.Seconds()
	}
	if lastBytes > 0 && sinceLast > 0 {
		p.BytesPerSecond = float64(lastBytes) / sinceLast.Seconds()
	}
}

// snapshot returns a copy of the current progress
func (t *progressTracker) snapshot() models.OffloadProgress {
	return t.progress
}
