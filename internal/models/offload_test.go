package models

import (
	"testing"
	"time"
)

func TestOffloadStatusIsActive(t *testing.T) {
	active := []OffloadStatus{StatusPreparing, StatusTransferring, StatusCompleting, StatusPaused}
	for _, s := range active {
		if !s.IsActive() {
			t.Errorf("expected %s to be active", s)
		}
	}

	inactive := []OffloadStatus{StatusIdle, StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range inactive {
		if s.IsActive() {
			t.Errorf("expected %s to be inactive", s)
		}
	}
}

func TestOffloadStatusIsTerminal(t *testing.T) {
	terminal := []OffloadStatus{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	if StatusPaused.IsTerminal() {
		t.Error("paused must not be terminal")
	}
	if StatusIdle.IsTerminal() {
		t.Error("idle must not be terminal")
	}
}

func TestProgressPercent(t *testing.T) {
	p := OffloadProgress{TotalBytes: 200, TransferredBytes: 50}
	if got := p.ProgressPercent(); got != 25.0 {
		t.Errorf("expected 25.0, got %f", got)
	}

	p = OffloadProgress{TotalBytes: 100, TransferredBytes: 100}
	if got := p.ProgressPercent(); got != 100.0 {
		t.Errorf("expected 100.0, got %f", got)
	}
}

func TestProgressMetricsOnReturnedValue(t *testing.T) {
	// Derived metrics must be callable directly on a snapshot return
	// value, not just on an addressable variable.
	snapshot := func() OffloadProgress {
		return OffloadProgress{TotalBytes: 200, TransferredBytes: 50, PendingBytes: 150}
	}
	if got := snapshot().ProgressPercent(); got != 25.0 {
		t.Errorf("expected 25.0, got %f", got)
	}
	if got := snapshot().EstimatedTimeRemaining(); got != 0 {
		t.Errorf("expected 0 without throughput, got %v", got)
	}
	if snapshot().CompletedSuccessfully() {
		t.Error("incomplete snapshot must not report success")
	}
}

func TestProgressPercentZeroBytes(t *testing.T) {
	p := OffloadProgress{}
	if got := p.ProgressPercent(); got != 0.0 {
		t.Errorf("zero-byte operation must report 0%%, got %f", got)
	}
}

func TestEstimatedTimeRemaining(t *testing.T) {
	p := OffloadProgress{
		PendingBytes:          100,
		AverageBytesPerSecond: 10,
	}
	if got := p.EstimatedTimeRemaining(); got != 10*time.Second {
		t.Errorf("expected 10s, got %v", got)
	}
}

func TestEstimatedTimeRemainingNoThroughput(t *testing.T) {
	p := OffloadProgress{PendingBytes: 100}
	if got := p.EstimatedTimeRemaining(); got != 0 {
		t.Errorf("expected 0 with no throughput, got %v", got)
	}

	p = OffloadProgress{AverageBytesPerSecond: 50}
	if got := p.EstimatedTimeRemaining(); got != 0 {
		t.Errorf("expected 0 with nothing pending, got %v", got)
	}
}

func TestCompletedSuccessfully(t *testing.T) {
	p := OffloadProgress{SegmentsTotal: 4, SegmentsCompleted: 4}
	if !p.CompletedSuccessfully() {
		t.Error("expected success")
	}

	p = OffloadProgress{SegmentsTotal: 4, SegmentsCompleted: 3}
	if p.CompletedSuccessfully() {
		t.Error("incomplete operation must not report success")
	}

	p = OffloadProgress{SegmentsTotal: 4, SegmentsCompleted: 4, ErrorMessage: "boom"}
	if p.CompletedSuccessfully() {
		t.Error("errored operation must not report success")
	}

	p = OffloadProgress{}
	if p.CompletedSuccessfully() {
		t.Error("empty operation must not report success")
	}
}

func TestResultDuration(t *testing.T) {
	r := OffloadResult{FinalProgress: OffloadProgress{Elapsed: 42 * time.Second}}
	if got := r.Duration(); got != 42*time.Second {
		t.Errorf("expected 42s, got %v", got)
	}
}
