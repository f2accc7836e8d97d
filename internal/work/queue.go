// Package work implements the cooperative worker queue that serializes radio
// lifecycle changes and telemetry ticks onto a single goroutine.
//
// Callback contexts (D-Bus signal handlers, timers) must not touch shared
// state directly; they submit tasks instead. Tasks execute strictly in FIFO
// submission order, so no two of them ever run concurrently.
package work

import (
	"context"
	"errors"
	"sync"

	"github.com/codedphy/beacon/internal/log"
)

// ErrQueueFull is returned by Submit when the task backlog is exhausted.
// Callers in callback context are expected to log and drop.
var ErrQueueFull = errors.New("work: queue full")

// BufferSize is the number of pending tasks that can be queued.
const BufferSize = 32

// Queue executes submitted tasks on a single goroutine.
//
// Tasks may be submitted before Start; they are held in the backlog and run
// once the queue starts.
type Queue struct {
	tasks chan func()

	doneLock  sync.Mutex
	terminate chan struct{}
	done      chan bool
}

func NewQueue() *Queue {
	return &Queue{
		tasks: make(chan func(), BufferSize),
		done:  make(chan bool),
	}
}

// Submit enqueues task for execution. It never blocks and is safe to call
// from any goroutine, including transport callback contexts.
func (q *Queue) Submit(task func()) error {
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs q's task loop in a new goroutine. Returns an error if q does not
// signal it's ready before ctx expires.
func (q *Queue) Start(ctx context.Context) error {
	ready := make(chan struct{})
	go q.run(ready)
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run(ready chan<- struct{}) {
	log.Debug("work: starting worker queue")
	q.doneLock.Lock()
	if q.terminate == nil {
		q.terminate = make(chan struct{})
	} else {
		q.doneLock.Unlock()
		return
	}
	terminate := q.terminate
	q.doneLock.Unlock()
	running := make(chan struct{}, 2)
	running <- struct{}{}
	defer func() {
		q.done <- true
	}()
	for {
		select {
		case task := <-q.tasks:
			task()
		case <-terminate:
			return
		case <-running:
			close(ready)
		}
	}
}

// Stop signals the task loop to exit and waits for it to finish the task it
// is currently executing. Pending tasks are discarded.
func (q *Queue) Stop() {
	q.doneLock.Lock()
	defer q.doneLock.Unlock()
	if q.terminate != nil {
		close(q.terminate)
		q.terminate = nil
		<-q.done
	}
}
