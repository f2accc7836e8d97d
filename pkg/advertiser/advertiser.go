// Package advertiser owns the two extended advertising sets and their
// lifecycle.
//
// The connectable set carries the small discovery payload (flags, service
// UUIDs, name) at a fast interval. The broadcast set carries the chunked
// oversized payload at a slow interval and is deliberately independent of
// connection state: a disconnect restarts only the connectable set.
package advertiser

import (
	"fmt"
	"sync/atomic"

	"github.com/codedphy/beacon/internal/log"
	"github.com/codedphy/beacon/internal/work"
	"github.com/codedphy/beacon/pkg/advdata"
	"github.com/codedphy/beacon/pkg/transport"
)

// Role distinguishes the two advertising sets.
type Role int

const (
	RoleConnectable Role = iota
	RoleBroadcast
)

func (r Role) String() string {
	switch r {
	case RoleConnectable:
		return "connectable"
	case RoleBroadcast:
		return "broadcast"
	}
	return "unknown"
}

// State tracks an advertising set through its lifecycle. The only permitted
// transitions are Uninitialized -> Created -> DataAttached -> Advertising ->
// Stopped, plus the Advertising -> Advertising self-loop on restart.
type State int

const (
	StateUninitialized State = iota
	StateCreated
	StateDataAttached
	StateAdvertising
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCreated:
		return "created"
	case StateDataAttached:
		return "data-attached"
	case StateAdvertising:
		return "advertising"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Config fixes the advertising layout at startup.
type Config struct {
	DeviceName string
	Services   []uint16

	// Broadcast payload sizing. TargetTotal is the full payload size on the
	// wire; StructureCap bounds a single AD structure's encoded size.
	TargetTotal  int
	StructureCap int
	CompanyID    uint16
	Sentinel     byte

	FastIntervalMin transport.Interval
	FastIntervalMax transport.Interval
	SlowIntervalMin transport.Interval
	SlowIntervalMax transport.Interval
}

type set struct {
	role       Role
	params     transport.SetParams
	structures []advdata.Structure
	handle     transport.Set
	state      State
}

// Manager owns both advertising sets. All methods except RequestRestart must
// run on the worker queue; RequestRestart is safe from callback context.
type Manager struct {
	radio transport.Radio
	cap   int

	connectable set
	broadcast   set

	// Coalesces repeated disconnects into a single queued restart.
	pendingRestart atomic.Bool
}

// New validates cfg and precomputes both sets' payloads. Chunk sizing errors
// surface here, before any radio call.
func New(radio transport.Radio, cfg Config) (*Manager, error) {
	plan, err := advdata.Plan(cfg.TargetTotal, cfg.StructureCap, advdata.StructureOverhead)
	if err != nil {
		return nil, err
	}
	broadcast, err := advdata.BroadcastStructures(plan, cfg.CompanyID, cfg.Sentinel)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		radio: radio,
		cap:   cfg.StructureCap,
		connectable: set{
			role: RoleConnectable,
			params: transport.SetParams{
				Connectable: true,
				Extended:    true,
				CodedPHY:    true,
				RequireS8:   true,
				IntervalMin: cfg.FastIntervalMin,
				IntervalMax: cfg.FastIntervalMax,
				LocalName:   cfg.DeviceName,
			},
			structures: advdata.ConnectableStructures(cfg.DeviceName, cfg.Services),
		},
		broadcast: set{
			role: RoleBroadcast,
			params: transport.SetParams{
				Extended:    true,
				CodedPHY:    true,
				RequireS8:   true,
				IntervalMin: cfg.SlowIntervalMin,
				IntervalMax: cfg.SlowIntervalMax,
			},
			structures: broadcast,
		},
	}
	log.Info("advertiser: broadcast payload uses %d structures, %d bytes total",
		len(plan), plan.TotalBytes())
	return m, nil
}

// StartAdvertising runs the one-time startup protocol: create, attach, and
// start the connectable set, then the broadcast set. The first failure aborts
// the remaining steps and is returned; the system must not limp into steady
// state half-configured.
func (m *Manager) StartAdvertising() error {
	if err := m.bringUp(&m.connectable); err != nil {
		return err
	}
	return m.bringUp(&m.broadcast)
}

func (m *Manager) bringUp(s *set) error {
	handle, err := m.radio.CreateSet(s.params)
	if err != nil {
		return fmt.Errorf("advertiser: failed to create %s set: %w", s.role, err)
	}
	s.handle = handle
	s.state = StateCreated
	log.Info("advertiser: created %s set", s.role)

	if err := m.attach(s); err != nil {
		return err
	}

	if err := s.handle.Start(); err != nil {
		return fmt.Errorf("advertiser: failed to start %s set: %w", s.role, err)
	}
	s.state = StateAdvertising
	log.Info("advertiser: %s set started", s.role)
	return nil
}

func (m *Manager) attach(s *set) error {
	for i, structure := range s.structures {
		if structure.TotalBytes() > m.cap {
			return fmt.Errorf("advertiser: %s set structure %d is %d bytes, cap %d: %w",
				s.role, i, structure.TotalBytes(), m.cap, transport.ErrDataRejected)
		}
	}
	if err := s.handle.SetData(s.structures); err != nil {
		return fmt.Errorf("advertiser: failed to attach %s set data: %w", s.role, err)
	}
	s.state = StateDataAttached
	return nil
}

// RequestRestart asks the worker queue to restart the connectable set.
// Repeated requests while one is pending coalesce into a single restart. Safe
// to call from transport callback context.
func (m *Manager) RequestRestart(q *work.Queue) {
	if !m.pendingRestart.CompareAndSwap(false, true) {
		return
	}
	if err := q.Submit(m.restartTask); err != nil {
		m.pendingRestart.Store(false)
		log.Error("advertiser: failed to queue restart: %s", err)
	}
}

func (m *Manager) restartTask() {
	m.pendingRestart.Store(false)
	if err := m.Restart(); err != nil {
		// Steady-state failure: log and keep running degraded rather than
		// terminate a long-lived broadcaster.
		log.Error("advertiser: connectable set restart failed: %s", err)
	}
}

// Restart starts the connectable set again after a disconnect. Valid only
// from Advertising or Stopped. The broadcast set is untouched.
func (m *Manager) Restart() error {
	s := &m.connectable
	switch s.state {
	case StateAdvertising, StateStopped:
	default:
		return fmt.Errorf("advertiser: cannot restart %s set from state %s", s.role, s.state)
	}
	if err := s.handle.Start(); err != nil {
		s.state = StateStopped
		return fmt.Errorf("advertiser: failed to restart %s set: %w", s.role, err)
	}
	s.state = StateAdvertising
	log.Info("advertiser: %s set restarted", s.role)
	return nil
}

// Stop halts both sets for shutdown.
func (m *Manager) Stop() {
	for _, s := range []*set{&m.connectable, &m.broadcast} {
		if s.state != StateAdvertising {
			continue
		}
		if err := s.handle.Stop(); err != nil {
			log.Warning("advertiser: failed to stop %s set: %s", s.role, err)
			continue
		}
		s.state = StateStopped
	}
}

// ConnectableState reports the connectable set's lifecycle state.
func (m *Manager) ConnectableState() State {
	return m.connectable.state
}

// BroadcastState reports the broadcast set's lifecycle state.
func (m *Manager) BroadcastState() State {
	return m.broadcast.state
}
