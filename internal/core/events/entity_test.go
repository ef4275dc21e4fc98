package events

import (
	"testing"

	"hubspace2mqtt/internal/core/domain"
	"hubspace2mqtt/pkg/hubspace"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func fixtureSnapshot(t *testing.T) hubspace.Snapshot {
	t.Helper()
	snapshot, err := hubspace.NewTestService().FetchDevices()
	if err != nil {
		t.Fatal(err)
	}
	return snapshot
}

func TestSnapshotUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	snapshot := fixtureSnapshot(t)
	logger := zap.NewNop()

	evs := SnapshotUpdateEvents(snapshot, logger)
	assert.Len(evs, 6, "light + fan + 3 outlets + switch")

	light, ok := evs[0].(domain.LightStateUpdateEvent)
	assert.True(ok)
	assert.Equal("lght-0000-0000-0000-000000000001", light.Id)
	assert.True(light.Power)
	assert.True(light.HasBrightness)
	assert.Equal(int64(127), light.Brightness, "50% maps to 127 of 255")
	assert.Equal(370, light.ColorTempMireds, "2700K maps to 370 mireds")
	assert.True(light.Available)

	fan, ok := evs[1].(domain.FanStateUpdateEvent)
	assert.True(ok)
	assert.Equal("fan0-0000-0000-0000-000000000002", fan.Id)
	assert.True(fan.Power)
	assert.Equal(33, fan.Percentage, "second of four speeds")
	assert.Equal(hubspace.PresetModeAuto, fan.PresetMode)
	assert.Equal("forward", fan.Direction)

	outlet1, ok := evs[2].(domain.SwitchStateUpdateEvent)
	assert.True(ok)
	assert.Equal("strp-0000-0000-0000-000000000003_1", outlet1.Id)
	assert.True(outlet1.Power)

	outlet2 := evs[3].(domain.SwitchStateUpdateEvent)
	assert.False(outlet2.Power)

	wallSwitch := evs[5].(domain.SwitchStateUpdateEvent)
	assert.Equal("swch-0000-0000-0000-000000000004", wallSwitch.Id, "single toggle keeps the bare id")
	assert.False(wallSwitch.Power)
}

func TestFanUpdateEventOffHasZeroPercentage(t *testing.T) {

	assert := assert.New(t)

	snapshot := fixtureSnapshot(t)
	device := snapshot["fan0-0000-0000-0000-000000000002"]

	ds := hubspace.NewDeviceState(device, zap.NewNop())
	err := ds.SetValue(hubspace.FunctionKey{Class: hubspace.FunctionClassPower}, false)
	assert.NoError(err)

	event := FanUpdateEvent(device, zap.NewNop())
	assert.False(event.Power)
	assert.Equal(0, event.Percentage)
}

func TestFanActivePreset(t *testing.T) {

	assert := assert.New(t)

	snapshot := fixtureSnapshot(t)
	device := snapshot["fan0-0000-0000-0000-000000000002"]

	ds := hubspace.NewDeviceState(device, zap.NewNop())
	ds.SetPreset("comfort-breeze")

	event := FanUpdateEvent(device, zap.NewNop())
	assert.Equal("comfort-breeze", event.PresetMode)
}

func TestSnapshotDiscovery(t *testing.T) {

	assert := assert.New(t)

	snapshot := fixtureSnapshot(t)
	logger := zap.NewNop()

	lights, fans, switches := SnapshotDiscovery(snapshot, "hubspace2mqtt", logger)

	assert.Len(lights, 1)
	assert.Len(fans, 1)
	assert.Len(switches, 4)

	light := lights[0]
	assert.Equal("lght-0000-0000-0000-000000000001", light.Id)
	assert.True(light.Brightness)
	assert.True(light.ColorTemp)
	assert.Equal(200, light.MinMireds, "5000K bound")
	assert.Equal(370, light.MaxMireds, "2700K bound")

	fan := fans[0]
	assert.Equal(4, fan.SpeedCount, "off label excluded")
	assert.Equal([]string{"comfort-breeze"}, fan.PresetModes)
	assert.True(fan.Direction)

	assert.Equal("strp-0000-0000-0000-000000000003_1", switches[0].Id)
	assert.Equal("Patio Strip outlet 1", switches[0].Name)
	assert.Equal(DEVICE_CLASS_OUTLET, switches[0].DeviceClass)
	assert.Equal("swch-0000-0000-0000-000000000004", switches[3].Id)
	assert.Equal(DEVICE_CLASS_SWITCH, switches[3].DeviceClass)

	// every entity hangs off the bridge device
	bridge := BridgeDevice("hubspace2mqtt")
	assert.Equal(bridge.Id, light.Device.ViaDevice)
	assert.NotEmpty(light.UniqueId)
}

func TestFanSpeedLabels(t *testing.T) {

	assert := assert.New(t)

	snapshot := fixtureSnapshot(t)
	ds := hubspace.NewDeviceState(snapshot["fan0-0000-0000-0000-000000000002"], zap.NewNop())

	labels := FanSpeedLabels(ds)
	assert.Equal([]string{"fan-speed-025", "fan-speed-050", "fan-speed-075", "fan-speed-100"}, labels)
}
