package transport

import "github.com/codedphy/beacon/internal/log"

// LogStatus is a StatusSink that writes indicator transitions to the log.
// It stands in for hardware LEDs on platforms without any.
type LogStatus struct{}

func (LogStatus) SetConnected(on bool) {
	if on {
		log.Info("status: connected indicator on")
	} else {
		log.Info("status: connected indicator off")
	}
}

func (LogStatus) SetRunning(on bool) {
	log.Debug("status: run indicator %t", on)
}
