// Package transport declares the radio collaborator interfaces the beacon
// drives: extended advertising set primitives, connection-lifecycle
// callbacks, attribute-notify primitives, and the status-indicator sink.
//
// Implementations live in subpackages (see bluez); fakes used in tests
// implement the same interfaces.
package transport

import (
	"time"

	"github.com/codedphy/beacon/pkg/advdata"
)

// Interval is an advertising interval in 0.625 ms units.
type Interval uint16

// Standard fast and slow advertising interval bounds.
const (
	FastIntervalMin Interval = 0x00a0 // 100 ms
	FastIntervalMax Interval = 0x00f0 // 150 ms
	SlowIntervalMin Interval = 0x0640 // 1 s
	SlowIntervalMax Interval = 0x0780 // 1.2 s
)

// Duration converts i to a time.Duration.
func (i Interval) Duration() time.Duration {
	return time.Duration(i) * 625 * time.Microsecond
}

// SetParams configures an advertising set at creation time.
type SetParams struct {
	Connectable bool
	Extended    bool
	CodedPHY    bool
	RequireS8   bool

	IntervalMin Interval
	IntervalMax Interval

	// LocalName is advertised by connectable sets. The broadcast set leaves
	// it empty.
	LocalName string
}

// Radio creates advertising sets. Calls are non-blocking; failures surface as
// typed errors from the taxonomy in this package.
type Radio interface {
	CreateSet(params SetParams) (Set, error)
}

// Set is one advertising instance owned by the advertiser layer. None of the
// methods block on IO.
type Set interface {
	// SetData attaches the AD structures broadcast by this set. The
	// structures must each fit the transport cap; oversized structures are
	// rejected with ErrDataRejected.
	SetData(structures []advdata.Structure) error

	// Start begins advertising. Restarting an already-started set is allowed
	// and resets the instance.
	Start() error

	// Stop halts advertising. Stopping a stopped set is a no-op.
	Stop() error
}

// ConnectionInfo describes an established connection.
type ConnectionInfo struct {
	Peer  string
	TXPHY PHY
	RXPHY PHY
}

// ConnectionObserver receives connection lifecycle events. The transport
// invokes these from its own callback context, never from the worker queue;
// implementations must only enqueue work, not mutate shared state.
type ConnectionObserver interface {
	// HandleConnected reports a connection attempt. err is non-nil if the
	// attempt failed, or ErrConnectionInfoUnavailable if the connection
	// succeeded but its parameters could not be read.
	HandleConnected(info ConnectionInfo, err error)

	// HandleDisconnected reports a dropped connection with its HCI reason
	// code.
	HandleDisconnected(peer string, reason uint8)
}

// Notifier pushes telemetry values to subscribed peers. The absence of
// subscribers is not an error; both methods are best effort.
type Notifier interface {
	NotifyHeartRate(bpm uint8) error
	NotifyBatteryLevel(level uint8) error
}

// StatusSink drives the device's status indicators.
type StatusSink interface {
	SetConnected(on bool)
	SetRunning(on bool)
}
