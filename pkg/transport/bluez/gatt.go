package bluez

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

const characteristicInterface = "org.bluez.GattCharacteristic1"

const (
	heartRateServiceUUID     = "0000180d-0000-1000-8000-00805f9b34fb"
	heartRateMeasurementUUID = "00002a37-0000-1000-8000-00805f9b34fb"
	batteryServiceUUID       = "0000180f-0000-1000-8000-00805f9b34fb"
	batteryLevelUUID         = "00002a19-0000-1000-8000-00805f9b34fb"
)

// Heart Rate Measurement flags: sensor contact supported and detected.
const heartRateFlags = 0x06

// Notifier pushes telemetry to subscribed centrals by updating the Value
// property of the exported characteristics; BlueZ turns the PropertiesChanged
// emission into GATT notifications. It implements transport.Notifier.
type Notifier struct {
	heartRate *prop.Properties
	battery   *prop.Properties
}

type objectManager struct {
	objects map[dbus.ObjectPath]map[string]map[string]*prop.Prop
}

// GetManagedObjects implements org.freedesktop.DBus.ObjectManager for the
// GATT application root, which is how BlueZ discovers the exported tree.
func (om *objectManager) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	managed := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant)
	for path, interfaces := range om.objects {
		managed[path] = make(map[string]map[string]dbus.Variant)
		for iface, properties := range interfaces {
			managed[path][iface] = make(map[string]dbus.Variant)
			for name, p := range properties {
				managed[path][iface][name] = dbus.MakeVariant(p.Value)
			}
		}
	}
	return managed, nil
}

func serviceSpec(uuid string) map[string]map[string]*prop.Prop {
	return map[string]map[string]*prop.Prop{
		"org.bluez.GattService1": {
			"UUID":    {Value: uuid},
			"Primary": {Value: true},
		},
	}
}

func characteristicSpec(uuid string, service dbus.ObjectPath, value []byte) map[string]map[string]*prop.Prop {
	return map[string]map[string]*prop.Prop{
		characteristicInterface: {
			"UUID":    {Value: uuid},
			"Service": {Value: service},
			"Flags":   {Value: []string{"read", "notify"}},
			"Value":   {Value: value, Writable: true, Emit: prop.EmitTrue},
		},
	}
}

// heartRateMeasurement encodes a Heart Rate Measurement value: one flags byte
// followed by the 8-bit measurement.
func heartRateMeasurement(bpm uint8) []byte {
	return []byte{heartRateFlags, bpm}
}

// ExportServices exports the heart-rate and battery GATT services and
// registers the application with BlueZ.
func (r *Radio) ExportServices() (*Notifier, error) {
	root := dbus.ObjectPath("/com/codedphy/beacon/gatt")
	objects := map[dbus.ObjectPath]map[string]map[string]*prop.Prop{}
	notifier := &Notifier{}

	services := []struct {
		path     dbus.ObjectPath
		service  string
		char     string
		value    []byte
		propsOut **prop.Properties
	}{
		{root + "/service1", heartRateServiceUUID, heartRateMeasurementUUID, heartRateMeasurement(0), &notifier.heartRate},
		{root + "/service2", batteryServiceUUID, batteryLevelUUID, []byte{0}, &notifier.battery},
	}

	for _, svc := range services {
		spec := serviceSpec(svc.service)
		objects[svc.path] = spec
		if _, err := prop.Export(r.bus, svc.path, spec); err != nil {
			return nil, fmt.Errorf("bluez: failed to export service %s: %w", svc.service, err)
		}

		charPath := svc.path + "/char1"
		charSpec := characteristicSpec(svc.char, svc.path, svc.value)
		objects[charPath] = charSpec
		props, err := prop.Export(r.bus, charPath, charSpec)
		if err != nil {
			return nil, fmt.Errorf("bluez: failed to export characteristic %s: %w", svc.char, err)
		}
		*svc.propsOut = props
	}

	om := &objectManager{objects: objects}
	if err := r.bus.Export(om, root, "org.freedesktop.DBus.ObjectManager"); err != nil {
		return nil, fmt.Errorf("bluez: failed to export object manager: %w", err)
	}
	if err := r.adapter.Call(gattManager+".RegisterApplication", 0, root, map[string]dbus.Variant(nil)).Err; err != nil {
		return nil, fmt.Errorf("bluez: failed to register GATT application: %w", err)
	}
	return notifier, nil
}

func (n *Notifier) NotifyHeartRate(bpm uint8) error {
	return n.heartRate.Set(characteristicInterface, "Value", dbus.MakeVariant(heartRateMeasurement(bpm)))
}

func (n *Notifier) NotifyBatteryLevel(level uint8) error {
	return n.battery.Set(characteristicInterface, "Value", dbus.MakeVariant([]byte{level}))
}
