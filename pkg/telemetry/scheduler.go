package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/codedphy/beacon/internal/log"
	"github.com/codedphy/beacon/internal/work"
	"github.com/codedphy/beacon/pkg/transport"
)

// DefaultPeriod is the notification interval.
const DefaultPeriod = time.Second

// Scheduler emits both telemetry values once per period. It re-arms itself
// after completing its own body, so actual spacing is period plus handler
// execution time; the drift is an accepted trade-off of cooperative
// scheduling.
type Scheduler struct {
	heartRate *HeartRate
	battery   *Battery
	notifier  transport.Notifier
	period    time.Duration
	task      *work.Delayable
	stopped   atomic.Bool
}

// NewScheduler binds a Scheduler to q. Ticks run on the queue, serialized
// with advertising lifecycle work; nothing else may mutate the counters.
func NewScheduler(q *work.Queue, notifier transport.Notifier, period time.Duration) *Scheduler {
	s := &Scheduler{
		heartRate: NewHeartRate(HeartRateMin),
		battery:   NewBattery(BatteryMax),
		notifier:  notifier,
		period:    period,
	}
	s.task = work.NewDelayable(q, s.tick)
	return s
}

// Start schedules the first tick immediately.
func (s *Scheduler) Start() {
	s.stopped.Store(false)
	s.task.Reschedule(0)
}

// Stop cancels any pending tick. A tick already on the queue returns without
// notifying or re-arming.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.task.Cancel()
}

func (s *Scheduler) tick() {
	if s.stopped.Load() {
		return
	}
	// Notifies are best effort: no subscriber is not an error, and a failed
	// push never stops the generator.
	if err := s.notifier.NotifyHeartRate(s.heartRate.Next()); err != nil {
		log.Debug("telemetry: heart rate notify: %s", err)
	}
	if err := s.notifier.NotifyBatteryLevel(s.battery.Next()); err != nil {
		log.Debug("telemetry: battery notify: %s", err)
	}
	s.task.Reschedule(s.period)
}
