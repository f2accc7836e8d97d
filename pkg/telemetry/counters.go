// Package telemetry generates the simulated heart-rate and battery values and
// pushes them to subscribed peers on a fixed period.
package telemetry

import "fmt"

const (
	// Simulated heart rate sweeps [HeartRateMin, HeartRateMax] and wraps.
	HeartRateMin uint8 = 100
	HeartRateMax uint8 = 159

	// Battery drains from BatteryMax to BatteryMin and then recharges. The
	// value 0 is never emitted.
	BatteryMin uint8 = 1
	BatteryMax uint8 = 100
)

// HeartRate is a wrapping counter owned exclusively by the scheduler's tick.
type HeartRate struct {
	bpm uint8
}

// NewHeartRate panics if start is outside [HeartRateMin, HeartRateMax]; a
// counter out of range is a programming error, not a runtime condition.
func NewHeartRate(start uint8) *HeartRate {
	if start < HeartRateMin || start > HeartRateMax {
		panic(fmt.Sprintf("telemetry: heart rate %d outside [%d, %d]", start, HeartRateMin, HeartRateMax))
	}
	return &HeartRate{bpm: start}
}

// Next advances the counter by one beat and returns the new value, wrapping
// back to HeartRateMin past HeartRateMax.
func (h *HeartRate) Next() uint8 {
	h.bpm++
	if h.bpm > HeartRateMax {
		h.bpm = HeartRateMin
	}
	return h.bpm
}

// Value returns the current heart rate without advancing it.
func (h *HeartRate) Value() uint8 {
	return h.bpm
}

// Battery is a draining counter owned exclusively by the scheduler's tick.
// Its sequence is stateful across ticks; the starting value of a run is
// whatever the previous tick left behind.
type Battery struct {
	level uint8
}

// NewBattery panics if start is outside [BatteryMin, BatteryMax].
func NewBattery(start uint8) *Battery {
	if start < BatteryMin || start > BatteryMax {
		panic(fmt.Sprintf("telemetry: battery level %d outside [%d, %d]", start, BatteryMin, BatteryMax))
	}
	return &Battery{level: start}
}

// Next drains the battery by one percent and returns the new level. A
// decrement that would reach zero recharges to BatteryMax instead; zero is
// never returned.
func (b *Battery) Next() uint8 {
	b.level--
	if b.level == 0 {
		b.level = BatteryMax
	}
	return b.level
}

// Value returns the current battery level without draining it.
func (b *Battery) Value() uint8 {
	return b.level
}
