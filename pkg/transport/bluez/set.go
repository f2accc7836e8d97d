package bluez

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/codedphy/beacon/pkg/advdata"
	"github.com/codedphy/beacon/pkg/transport"
)

const advertisementInterface = "org.bluez.LEAdvertisement1"

var advertisementID uint64

// advertisingSet is one exported LEAdvertisement1 object. Registering it with
// the advertising manager is what starts the broadcast; BlueZ fragments the
// attached payload across AD structures itself, so the chunk layout computed
// upstream is preserved exactly only on controllers driven directly over HCI.
type advertisingSet struct {
	radio      *Radio
	params     transport.SetParams
	path       dbus.ObjectPath
	props      *prop.Properties
	registered bool
}

// CreateSet exports a fresh advertisement object for params. Data is attached
// later via SetData; the broadcast begins on Start.
func (r *Radio) CreateSet(params transport.SetParams) (transport.Set, error) {
	id := atomic.AddUint64(&advertisementID, 1)
	s := &advertisingSet{
		radio:  r,
		params: params,
		path:   dbus.ObjectPath(fmt.Sprintf("/com/codedphy/beacon/advertisement%d", id)),
	}
	props, err := prop.Export(r.bus, s.path, advertisementProperties(params, nil))
	if err != nil {
		return nil, fmt.Errorf("bluez: failed to export advertisement: %s: %w", err, transport.ErrCreationFailed)
	}
	s.props = props
	return s, nil
}

// advertisementProperties builds the LEAdvertisement1 property spec for
// params with the given AD structures attached.
func advertisementProperties(params transport.SetParams, structures []advdata.Structure) map[string]map[string]*prop.Prop {
	advType := "broadcast"
	if params.Connectable {
		advType = "peripheral"
	}
	spec := map[string]*prop.Prop{
		"Type":             {Value: advType},
		"ServiceUUIDs":     {Value: serviceUUIDStrings(structures), Writable: true},
		"ManufacturerData": {Value: manufacturerDataMap(structures), Writable: true},
		"LocalName":        {Value: params.LocalName},
		"Timeout":          {Value: uint16(0)},
		"MinInterval":      {Value: uint32(params.IntervalMin.Duration().Milliseconds())},
		"MaxInterval":      {Value: uint32(params.IntervalMax.Duration().Milliseconds())},
	}
	if params.CodedPHY {
		// S=8 is the coding BlueZ applies on the coded secondary channel.
		spec["SecondaryChannel"] = &prop.Prop{Value: "Coded"}
	}
	return map[string]map[string]*prop.Prop{advertisementInterface: spec}
}

// manufacturerDataMap converts manufacturer AD structures into the a{qv}
// dictionary BlueZ expects. The dictionary is keyed by company identifier, so
// chunks sharing one identifier are concatenated in order.
func manufacturerDataMap(structures []advdata.Structure) map[uint16]interface{} {
	data := map[uint16]interface{}{}
	for _, s := range structures {
		if s.Type != advdata.TypeManufacturerData || len(s.Data) < advdata.CompanyIDWidth {
			continue
		}
		company := binary.LittleEndian.Uint16(s.Data)
		payload := s.Data[advdata.CompanyIDWidth:]
		if existing, ok := data[company].([]byte); ok {
			payload = append(append([]byte{}, existing...), payload...)
		}
		data[company] = payload
	}
	return data
}

// serviceUUIDStrings extracts advertised 16-bit service UUIDs as the
// full-length strings BlueZ wants.
func serviceUUIDStrings(structures []advdata.Structure) []string {
	var uuids []string
	for _, s := range structures {
		if s.Type != advdata.TypeAllUUID16 && s.Type != advdata.TypeSomeUUID16 {
			continue
		}
		b := s.Data
		for len(b) >= 2 {
			uuids = append(uuids, uuid16String(binary.LittleEndian.Uint16(b)))
			b = b[2:]
		}
	}
	return uuids
}

func uuid16String(u uint16) string {
	return fmt.Sprintf("%08x-0000-1000-8000-00805f9b34fb", uint32(u))
}

// SetData attaches structures by updating the exported advertisement
// properties. Flags and local name structures are dropped: BlueZ owns the
// flags field, and the name is carried by the LocalName property.
func (s *advertisingSet) SetData(structures []advdata.Structure) error {
	spec := advertisementProperties(s.params, structures)[advertisementInterface]
	for _, name := range []string{"ServiceUUIDs", "ManufacturerData"} {
		if err := s.props.Set(advertisementInterface, name, dbus.MakeVariant(spec[name].Value)); err != nil {
			return fmt.Errorf("bluez: failed to set %s: %s: %w", name, err, transport.ErrDataRejected)
		}
	}
	return nil
}

// Start registers the advertisement with BlueZ. Starting an already-running
// set re-registers it, which resets the advertising instance.
func (s *advertisingSet) Start() error {
	if s.registered {
		if err := s.Stop(); err != nil {
			return err
		}
	}
	err := s.radio.adapter.Call(advertisingManager+".RegisterAdvertisement", 0, s.path, map[string]interface{}{}).Err
	if err != nil {
		if dbusErr, ok := err.(dbus.Error); ok && dbusErr.Name == "org.bluez.Error.AlreadyExists" {
			s.registered = true
			return nil
		}
		return fmt.Errorf("bluez: failed to register advertisement: %s: %w", err, transport.ErrStartFailed)
	}
	s.registered = true
	return nil
}

// Stop unregisters the advertisement. Stopping a stopped set is a no-op.
func (s *advertisingSet) Stop() error {
	err := s.radio.adapter.Call(advertisingManager+".UnregisterAdvertisement", 0, s.path).Err
	if err != nil {
		if dbusErr, ok := err.(dbus.Error); ok && dbusErr.Name == "org.bluez.Error.DoesNotExist" {
			s.registered = false
			return nil
		}
		return fmt.Errorf("bluez: failed to unregister advertisement: %w", err)
	}
	s.registered = false
	return nil
}
