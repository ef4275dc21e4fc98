package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "hubspace2mqtt/internal/core/domain"
	"hubspace2mqtt/pkg/hubspace"

	"github.com/carlmjohnson/versioninfo"
	"go.uber.org/zap"
)

const (
	ENTITY_ID_BRIDGE_STATE = "bridge"

	DEVICE_CLASS_SWITCH = "switch"
	DEVICE_CLASS_OUTLET = "outlet"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("hubspace_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "hubspace2mqtt",
		Model:        "Hubspace Bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Hubspace Bridge %s", md5HashShort(baseTopic)),
	}
}

func MetadeviceDevice(device *hubspace.Device, viaDevice string) Device {
	return Device{
		Id:           fmt.Sprintf("hs_%s", md5HashShort(device.ID)),
		Manufacturer: device.Manufacturer,
		Model:        device.Model,
		Name:         device.FriendlyName,
		ViaDevice:    viaDevice,
	}
}

// SnapshotDiscovery builds the discoverable entity set of a snapshot.
// Capability flags and bounds come from the function descriptors, not
// from live state, so an unavailable device still registers fully.
func SnapshotDiscovery(snapshot hubspace.Snapshot, baseTopic string, logger *zap.Logger) ([]GenericLight, []GenericFan, []GenericSwitch) {
	bridge := BridgeDevice(baseTopic)

	var lights []GenericLight
	for _, id := range snapshot.Lights() {
		lights = append(lights, lightDiscovery(snapshot[id], bridge.Id, logger))
	}

	var fans []GenericFan
	for _, id := range snapshot.Fans() {
		fans = append(fans, fanDiscovery(snapshot[id], bridge.Id, logger))
	}

	var switches []GenericSwitch
	for _, ref := range snapshot.Switches() {
		switches = append(switches, switchDiscovery(snapshot[ref.MetadeviceID], ref, bridge.Id, logger))
	}
	return lights, fans, switches
}

func lightDiscovery(device *hubspace.Device, bridgeId string, logger *zap.Logger) GenericLight {
	ds := hubspace.NewDeviceState(device, logger)
	light := GenericLight{
		Device:   MetadeviceDevice(device, bridgeId),
		Id:       device.ID,
		Name:     device.FriendlyName,
		UniqueId: uniqueId(device.ID),
	}
	light.Brightness = ds.Function(hubspace.FunctionKey{Class: hubspace.FunctionClassBrightness}) != nil
	kelvins := ds.FunctionValues(hubspace.FunctionKey{Class: hubspace.FunctionClassColorTemperature})
	if len(kelvins) > 0 {
		codec, _ := hubspace.CodecFor(hubspace.FunctionClassColorTemperature)
		// labels are kelvin-sorted ascending, mireds bounds invert
		minKelvin, errMin := codec.Decode(kelvins[0])
		maxKelvin, errMax := codec.Decode(kelvins[len(kelvins)-1])
		if errMin == nil && errMax == nil {
			light.ColorTemp = true
			light.MinMireds = int(1_000_000 / maxKelvin.(int64))
			light.MaxMireds = int(1_000_000 / minKelvin.(int64))
		}
	}
	return light
}

func fanDiscovery(device *hubspace.Device, bridgeId string, logger *zap.Logger) GenericFan {
	ds := hubspace.NewDeviceState(device, logger)
	return GenericFan{
		Device:      MetadeviceDevice(device, bridgeId),
		Id:          device.ID,
		Name:        device.FriendlyName,
		UniqueId:    uniqueId(device.ID),
		SpeedCount:  len(FanSpeedLabels(ds)),
		PresetModes: ds.PresetModes(),
		Direction:   ds.Function(hubspace.FunctionKey{Class: hubspace.FunctionClassFanReverse}) != nil,
	}
}

func switchDiscovery(device *hubspace.Device, ref hubspace.SwitchRef, bridgeId string, logger *zap.Logger) GenericSwitch {
	name := device.FriendlyName
	if ref.OutletIndex > 0 {
		name = fmt.Sprintf("%s outlet %d", name, ref.OutletIndex)
	}
	sw := GenericSwitch{
		Device:      MetadeviceDevice(device, bridgeId),
		Id:          ref.UniqueID(),
		Name:        name,
		UniqueId:    uniqueId(ref.UniqueID()),
		DeviceClass: DEVICE_CLASS_SWITCH,
	}
	if device.Class == hubspace.DeviceClassPowerOutlet {
		sw.DeviceClass = DEVICE_CLASS_OUTLET
		sw.Icon = "mdi:power-socket-us"
	}
	return sw
}

func uniqueId(id string) string {
	return fmt.Sprintf("uid_hs_%s", id)
}

func md5HashShort(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[0:8]
}
