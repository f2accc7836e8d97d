// Package bluez implements the transport collaborator interfaces on top of
// the BlueZ D-Bus API: advertising sets as org.bluez.LEAdvertisement1
// objects, telemetry notifies as GATT characteristic Value updates, and
// connection events from org.bluez.Device1 property signals.
package bluez

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/codedphy/beacon/internal/log"
	"github.com/codedphy/beacon/pkg/transport"
)

const (
	bluezService = "org.bluez"

	adapterInterface   = "org.bluez.Adapter1"
	deviceInterface    = "org.bluez.Device1"
	advertisingManager = "org.bluez.LEAdvertisingManager1"
	gattManager        = "org.bluez.GattManager1"

	devicePropAddress   = "Address"
	devicePropConnected = "Connected"

	signalInterfacesAdded   = "org.freedesktop.DBus.ObjectManager.InterfacesAdded"
	signalPropertiesChanged = "org.freedesktop.DBus.Properties.PropertiesChanged"
)

// Positions of the bodies of the two signals we match.
const (
	propertiesChangedInterfaceName = 0
	propertiesChangedDictionary    = 1

	interfacesAddedDictionary = 1
)

var (
	matchOptionsPropertiesChanged = []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(propertiesChangedInterfaceName, deviceInterface),
	}
	matchOptionsInterfacesAdded = []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus.ObjectManager"),
		dbus.WithMatchMember("InterfacesAdded"),
	}
)

// Radio drives one BlueZ adapter. It implements transport.Radio; connection
// events are delivered to the observer registered with SetConnectionObserver
// from the D-Bus signal goroutine, which is the transport callback context.
type Radio struct {
	id      string
	bus     *dbus.Conn
	adapter dbus.BusObject

	observer transport.ConnectionObserver
	sigCh    chan *dbus.Signal
}

// NewRadio connects to the system bus and verifies adapterID exists.
func NewRadio(adapterID string) (*Radio, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: failed to connect to system bus: %w", err)
	}
	r := &Radio{
		id:      adapterID,
		bus:     bus,
		adapter: bus.Object(bluezService, dbus.ObjectPath("/org/bluez/"+adapterID)),
	}
	if _, err := r.adapter.GetProperty(adapterInterface + ".Address"); err != nil {
		if dbusErr, ok := err.(dbus.Error); ok && dbusErr.Name == "org.freedesktop.DBus.Error.UnknownObject" {
			return nil, fmt.Errorf("bluez: adapter %s does not exist", adapterID)
		}
		return nil, fmt.Errorf("bluez: could not reach adapter %s: %w", adapterID, err)
	}
	return r, nil
}

// SetConnectionObserver registers obs for connect/disconnect callbacks and
// starts the signal pump. Must be called before any connection can arrive.
func (r *Radio) SetConnectionObserver(obs transport.ConnectionObserver) error {
	r.observer = obs
	r.sigCh = make(chan *dbus.Signal, 16)
	r.bus.Signal(r.sigCh)
	if err := r.bus.AddMatchSignal(matchOptionsPropertiesChanged...); err != nil {
		return fmt.Errorf("bluez: add match signal PropertiesChanged: %w", err)
	}
	if err := r.bus.AddMatchSignal(matchOptionsInterfacesAdded...); err != nil {
		return fmt.Errorf("bluez: add match signal InterfacesAdded: %w", err)
	}
	go r.handleSignals()
	return nil
}

// Close tears down signal delivery. Advertising sets are stopped separately
// by their owner.
func (r *Radio) Close() {
	if r.sigCh != nil {
		if err := r.bus.RemoveMatchSignal(matchOptionsPropertiesChanged...); err != nil {
			log.Warning("bluez: remove match signal: %s", err)
		}
		if err := r.bus.RemoveMatchSignal(matchOptionsInterfacesAdded...); err != nil {
			log.Warning("bluez: remove match signal: %s", err)
		}
		r.bus.RemoveSignal(r.sigCh)
		close(r.sigCh)
		r.sigCh = nil
	}
}

func (r *Radio) handleSignals() {
	for sig := range r.sigCh {
		switch sig.Name {
		case signalInterfacesAdded:
			interfaces, ok := sig.Body[interfacesAddedDictionary].(map[string]map[string]dbus.Variant)
			if !ok {
				continue
			}
			props, ok := interfaces[deviceInterface]
			if !ok {
				continue
			}
			r.dispatchConnectionChange(sig.Path, props)
		case signalPropertiesChanged:
			if name, ok := sig.Body[propertiesChangedInterfaceName].(string); !ok || name != deviceInterface {
				continue
			}
			changes, ok := sig.Body[propertiesChangedDictionary].(map[string]dbus.Variant)
			if !ok {
				continue
			}
			if _, ok := changes[devicePropConnected]; !ok {
				continue
			}
			// The signal only carries the changed property; fetch the rest.
			device := r.bus.Object(bluezService, sig.Path)
			var props map[string]dbus.Variant
			if err := device.Call("org.freedesktop.DBus.Properties.GetAll", 0, deviceInterface).Store(&props); err != nil {
				log.Warning("bluez: failed to read device properties: %s", err)
				continue
			}
			r.dispatchConnectionChange(sig.Path, props)
		}
	}
}

func (r *Radio) dispatchConnectionChange(path dbus.ObjectPath, props map[string]dbus.Variant) {
	connected, ok := connectedState(props)
	if !ok {
		return
	}
	peer := peerAddress(props)
	if connected {
		// BlueZ's D-Bus API does not expose the negotiated PHY.
		r.observer.HandleConnected(transport.ConnectionInfo{Peer: peer}, transport.ErrConnectionInfoUnavailable)
	} else {
		r.observer.HandleDisconnected(peer, disconnectReasonUnknown)
	}
}

// BlueZ does not surface the HCI disconnect reason over D-Bus.
const disconnectReasonUnknown uint8 = 0x00

func connectedState(props map[string]dbus.Variant) (bool, bool) {
	v, ok := props[devicePropConnected]
	if !ok {
		return false, false
	}
	connected, ok := v.Value().(bool)
	return connected, ok
}

func peerAddress(props map[string]dbus.Variant) string {
	if v, ok := props[devicePropAddress]; ok {
		if addr, ok := v.Value().(string); ok {
			return addr
		}
	}
	return "unknown"
}
