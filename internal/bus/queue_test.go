package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"main/internal/model"
)

func TestTryPublishDropsWhenFull(t *testing.T) {
	q := NewQueue(1)
	if err := q.TryPublish(model.Event{Kind: model.EventSignalGenerated}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := q.TryPublish(model.Event{Kind: model.EventSignalGenerated}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("got %v want ErrQueueFull", err)
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	q := NewQueue(4)
	q.Close()
	if err := q.TryPublish(model.Event{}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("got %v want ErrQueueClosed", err)
	}
}

func TestConcurrentPublishAndCloseDoesNotPanic(t *testing.T) {
	q := NewQueue(2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				err := q.TryPublish(model.Event{Kind: model.EventOrderApproved})
				if err != nil && !errors.Is(err, ErrQueueFull) && !errors.Is(err, ErrQueueClosed) {
					t.Errorf("publish: %v", err)
					return
				}
			}
		}()
	}
	go func() {
		q.Run(context.Background(), func(model.Event) {})
	}()
	q.Close()
	wg.Wait()

	if err := q.TryPublish(model.Event{}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("got %v want ErrQueueClosed", err)
	}
}

func TestRunDrainsUntilClose(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 5; i++ {
		if err := q.TryPublish(model.Event{Kind: model.EventFillApplied}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	q.Close()

	got := 0
	q.Run(context.Background(), func(model.Event) { got++ })
	if got != 5 {
		t.Fatalf("handled: got %d want 5", got)
	}
}
