package work

import (
	"sync"
	"time"

	"github.com/codedphy/beacon/internal/log"
)

// Delayable is a re-armable work item bound to a Queue. When its delay
// expires the body is submitted to the queue rather than executed inline, so
// delayable work obeys the same serialization as everything else.
type Delayable struct {
	queue *Queue
	body  func()

	lock     sync.Mutex
	timer    *time.Timer
	canceled bool
}

func NewDelayable(q *Queue, body func()) *Delayable {
	return &Delayable{queue: q, body: body}
}

// Reschedule arms d to fire after delay. If d is already armed, the remaining
// delay is replaced; a second concurrent firing is never armed.
func (d *Delayable) Reschedule(delay time.Duration) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.canceled = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.fire)
}

// Cancel disarms d. Canceling an unarmed Delayable is a no-op. A timer that
// has already expired but not yet submitted its body is suppressed; a body
// already on the queue is not recalled.
func (d *Delayable) Cancel() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.canceled = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Delayable) fire() {
	d.lock.Lock()
	if d.canceled {
		d.lock.Unlock()
		return
	}
	d.lock.Unlock()
	if err := d.queue.Submit(d.body); err != nil {
		log.Warning("work: dropping delayed task: %s", err)
	}
}
