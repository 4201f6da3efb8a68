package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/containertiming/internal/domain/model"
)

func batch(id string) model.Batch {
	return model.Batch{BatchID: id, Entries: []model.RawEntry{{EntryType: "element", Name: id}}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, batch("b1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.BatchID != "b1" {
		t.Errorf("expected b1, got %v", got.BatchID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"b1", "b2"} {
		if err := q.Enqueue(ctx, batch(id)); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}
	if err := q.Enqueue(ctx, batch("b3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}
}

func TestInMemoryQueue_Order(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, batch(fmt.Sprintf("b%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	ch := q.Dequeue(ctx)
	for i := 0; i < 5; i++ {
		if got := (<-ch).BatchID; got != fmt.Sprintf("b%d", i) {
			t.Errorf("position %d: got %s", i, got)
		}
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, batch("b1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	const producers, perProducer = 10, 50

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for q.Enqueue(ctx, batch(fmt.Sprintf("b%d_%d", id, j))) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	consumed := make(chan struct{}, producers*perProducer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range q.Dequeue(ctx) {
			consumed <- struct{}{}
		}
	}()

	wg.Wait()
	deadline := time.After(2 * time.Second)
	for len(consumed) < producers*perProducer {
		select {
		case <-deadline:
			t.Fatalf("consumed %d of %d", len(consumed), producers*perProducer)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	_ = q.Close()
	<-done
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, batch("b1")); err != nil {
		t.Fatal(err)
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, batch("b2")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Queued batches drain before the channel reports closed.
	ch := q.Dequeue(ctx)
	if got, ok := <-ch; !ok || got.BatchID != "b1" {
		t.Errorf("expected queued b1, got %v %v", got.BatchID, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("expected dequeue channel to be closed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
