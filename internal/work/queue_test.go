package work

import (
	"context"
	"testing"
	"time"
)

var quiescentDelay = 250 * time.Millisecond

func startQueue(t *testing.T) *Queue {
	t.Helper()
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %s", err)
	}
	t.Cleanup(q.Stop)
	return q
}

func TestTasksRunInSubmissionOrder(t *testing.T) {
	q := NewQueue()
	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		if err := q.Submit(func() { order = append(order, i) }); err != nil {
			t.Fatalf("Submit failed: %s", err)
		}
	}
	if err := q.Submit(func() { close(done) }); err != nil {
		t.Fatalf("Submit failed: %s", err)
	}

	// Tasks submitted before Start must survive in the backlog.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %s", err)
	}
	defer q.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for tasks to drain")
	}
	for i, got := range order {
		if got != i {
			t.Errorf("Task %d ran out of order (position %d)", got, i)
		}
	}
	if len(order) != 5 {
		t.Errorf("Expected 5 tasks to run, got %d", len(order))
	}
}

func TestSubmitDoesNotBlockWhenFull(t *testing.T) {
	q := NewQueue()
	for i := 0; i < BufferSize; i++ {
		if err := q.Submit(func() {}); err != nil {
			t.Fatalf("Submit %d failed: %s", i, err)
		}
	}
	if err := q.Submit(func() {}); err != ErrQueueFull {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	q := startQueue(t)
	q.Stop()
	q.Stop()
}

func TestDelayableRescheduleReplacesDelay(t *testing.T) {
	q := startQueue(t)
	fired := make(chan struct{}, 8)
	d := NewDelayable(q, func() { fired <- struct{}{} })

	// The second Reschedule must replace the first delay, not arm a second
	// concurrent firing.
	d.Reschedule(time.Hour)
	d.Reschedule(10 * time.Millisecond)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Delayable did not fire")
	}
	select {
	case <-fired:
		t.Error("Delayable fired twice")
	case <-time.After(quiescentDelay):
	}
}

func TestDelayableCancel(t *testing.T) {
	q := startQueue(t)
	fired := make(chan struct{}, 1)
	d := NewDelayable(q, func() { fired <- struct{}{} })
	d.Reschedule(20 * time.Millisecond)
	d.Cancel()
	d.Cancel()
	select {
	case <-fired:
		t.Error("Canceled Delayable fired")
	case <-time.After(quiescentDelay):
	}
}

func TestDelayableRescheduleAfterCancelRearms(t *testing.T) {
	q := startQueue(t)
	fired := make(chan struct{}, 1)
	d := NewDelayable(q, func() { fired <- struct{}{} })
	d.Reschedule(time.Hour)
	d.Cancel()
	d.Reschedule(0)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Delayable did not fire after being re-armed")
	}
}

func TestDelayableZeroDelayFiresImmediately(t *testing.T) {
	q := startQueue(t)
	fired := make(chan struct{}, 1)
	d := NewDelayable(q, func() { fired <- struct{}{} })
	d.Reschedule(0)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Delayable did not fire")
	}
}
