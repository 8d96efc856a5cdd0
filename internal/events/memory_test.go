package events

import (
	"context"
	"testing"
	"time"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/models"
)

func TestMemoryPublisherFanOut(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch1, cancel1 := p.Subscribe(8)
	defer cancel1()
	ch2, cancel2 := p.Subscribe(8)
	defer cancel2()

	event := OffloadEvent{
		Kind:        KindStatusChanged,
		OperationID: "op-1",
		Status:      models.StatusTransferring,
		Timestamp:   time.Now(),
	}
	if err := p.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	for i, ch := range []<-chan OffloadEvent{ch1, ch2} {
		select {
		case got := <-ch:
			if got.OperationID != "op-1" || got.Kind != KindStatusChanged {
				t.Errorf("subscriber %d got unexpected event: %+v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestMemoryPublisherUnsubscribe(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch, cancel := p.Subscribe(1)
	cancel()

	if _, open := <-ch; open {
		t.Error("cancelled subscription channel must be closed")
	}

	// Publishing after unsubscribe must not panic
	if err := p.Publish(context.Background(), OffloadEvent{Kind: KindProgress}); err != nil {
		t.Errorf("publish failed: %v", err)
	}
}

func TestMemoryPublisherDropsWhenFull(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch, cancel := p.Subscribe(1)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := p.Publish(context.Background(), OffloadEvent{Kind: KindProgress}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	// Exactly the buffered event is delivered; the rest were dropped
	<-ch
	select {
	case <-ch:
		t.Error("overflow events must be dropped, not queued")
	default:
	}
}

func TestMemoryPublisherClosed(t *testing.T) {
	p := NewMemoryPublisher()
	ch, _ := p.Subscribe(1)

	if err := p.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, open := <-ch; open {
		t.Error("close must close subscriber channels")
	}
	if err := p.Publish(context.Background(), OffloadEvent{}); err != ErrPublisherClosed {
		t.Errorf("expected ErrPublisherClosed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("double close must be a no-op, got %v", err)
	}
}

func TestEventSubject(t *testing.T) {
	e := OffloadEvent{Kind: KindCompleted}
	if got := e.Subject(); got != "redcomponent.offload.completed" {
		t.Errorf("unexpected subject: %s", got)
	}
}
