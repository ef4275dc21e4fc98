package events

import (
	. "hubspace2mqtt/internal/core/domain"
	"hubspace2mqtt/pkg/hubspace"

	"go.uber.org/zap"
)

// FanSpeedLabels returns the selectable speed labels of a fan, dropping
// the off label so percentage mapping only covers running speeds.
func FanSpeedLabels(ds *hubspace.DeviceState) []string {
	values := ds.FunctionValues(hubspace.FunctionKey{Class: hubspace.FunctionClassFanSpeed})
	labels := make([]string, 0, len(values))
	for _, v := range values {
		if v == "fan-speed-000" {
			continue
		}
		labels = append(labels, v)
	}
	return labels
}

func LightUpdateEvent(device *hubspace.Device, logger *zap.Logger) LightStateUpdateEvent {
	ds := hubspace.NewDeviceState(device, logger)
	event := LightStateUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: device.ID,
		},
		Available: ds.Available(),
	}
	event.Power, _ = ds.BoolValue(hubspace.FunctionKey{Class: hubspace.FunctionClassPower})
	event.Brightness, event.HasBrightness = ds.IntValue(hubspace.FunctionKey{Class: hubspace.FunctionClassBrightness})
	if kelvin, ok := ds.IntValue(hubspace.FunctionKey{Class: hubspace.FunctionClassColorTemperature}); ok && kelvin > 0 {
		event.ColorTempMireds = int(1_000_000 / kelvin)
	}
	return event
}

func FanUpdateEvent(device *hubspace.Device, logger *zap.Logger) FanStateUpdateEvent {
	ds := hubspace.NewDeviceState(device, logger)
	event := FanStateUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: device.ID,
		},
		PresetMode: ds.ActivePreset(),
		Available:  ds.Available(),
	}
	event.Power, _ = ds.BoolValue(hubspace.FunctionKey{Class: hubspace.FunctionClassPower})
	if event.Power {
		label, _ := ds.StringValue(hubspace.FunctionKey{Class: hubspace.FunctionClassFanSpeed})
		pct, err := hubspace.OrderedListItemToPercentage(FanSpeedLabels(ds), label)
		if err == nil {
			event.Percentage = pct
		} else if logger != nil {
			logger.Warn("could not map fan speed to percentage",
				zap.String("metadevice", device.ID), zap.String("label", label), zap.Error(err))
		}
	}
	event.Direction, _ = ds.StringValue(hubspace.FunctionKey{Class: hubspace.FunctionClassFanReverse})
	return event
}

func SwitchUpdateEvent(device *hubspace.Device, ref hubspace.SwitchRef, logger *zap.Logger) SwitchStateUpdateEvent {
	ds := hubspace.NewDeviceState(device, logger)
	event := SwitchStateUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: ref.UniqueID(),
		},
		Available: ds.Available(),
	}
	event.Power, _ = ds.BoolValue(ref.ToggleKey())
	return event
}

// DeviceUpdateEvents derives the update events of one device, one per
// exposed entity. A multi-outlet device yields one event per outlet.
func DeviceUpdateEvents(device *hubspace.Device, logger *zap.Logger) []any {
	var events []any
	switch device.Class {
	case hubspace.DeviceClassLight:
		events = append(events, LightUpdateEvent(device, logger))
	case hubspace.DeviceClassFan, hubspace.DeviceClassCeilingFan:
		events = append(events, FanUpdateEvent(device, logger))
	case hubspace.DeviceClassSwitch, hubspace.DeviceClassPowerOutlet:
		single := hubspace.Snapshot{device.ID: device}
		for _, ref := range single.Switches() {
			events = append(events, SwitchUpdateEvent(device, ref, logger))
		}
	}
	return events
}

// SnapshotUpdateEvents derives the update events of a whole snapshot in
// deterministic entity order.
func SnapshotUpdateEvents(snapshot hubspace.Snapshot, logger *zap.Logger) []any {
	var events []any
	for _, id := range snapshot.Lights() {
		events = append(events, LightUpdateEvent(snapshot[id], logger))
	}
	for _, id := range snapshot.Fans() {
		events = append(events, FanUpdateEvent(snapshot[id], logger))
	}
	for _, ref := range snapshot.Switches() {
		events = append(events, SwitchUpdateEvent(snapshot[ref.MetadeviceID], ref, logger))
	}
	return events
}
