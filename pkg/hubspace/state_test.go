package hubspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixtureSnapshot(t *testing.T) Snapshot {
	t.Helper()
	snapshot, err := ParseSnapshot([]byte(testListingJSON))
	assert.NoError(t, err)
	return snapshot
}

func TestDeviceStateLookups(t *testing.T) {
	snapshot := fixtureSnapshot(t)
	ds := NewDeviceState(snapshot["lght-0000-0000-0000-000000000001"], nil)

	// no-instance lookup resolves the instanced power entry
	on, ok := ds.BoolValue(FunctionKey{Class: FunctionClassPower})
	assert.True(t, ok)
	assert.True(t, on)

	level, ok := ds.IntValue(FunctionKey{Class: FunctionClassBrightness})
	assert.True(t, ok)
	assert.Equal(t, int64(127), level)

	kelvin, ok := ds.IntValue(FunctionKey{Class: FunctionClassColorTemperature})
	assert.True(t, ok)
	assert.Equal(t, int64(2700), kelvin)

	_, ok = ds.Value(FunctionKey{Class: FunctionClassFanSpeed})
	assert.False(t, ok)
}

func TestDeviceStateAmbiguousLookupTakesFirst(t *testing.T) {
	snapshot := fixtureSnapshot(t)
	ds := NewDeviceState(snapshot["strp-0000-0000-0000-000000000003"], nil)

	// three toggle instances exist; lookup does not fail, first wins
	sv := ds.State(FunctionKey{Class: FunctionClassToggle})
	assert.NotNil(t, sv)
	assert.Equal(t, "outlet-1", sv.Key.Instance)
	assert.Equal(t, "on", sv.Value)

	sv = ds.State(FunctionKey{Class: FunctionClassToggle, Instance: "outlet-2"})
	assert.NotNil(t, sv)
	assert.Equal(t, "off", sv.Value)
}

func TestDeviceStateSetValue(t *testing.T) {
	snapshot := fixtureSnapshot(t)
	ds := NewDeviceState(snapshot["lght-0000-0000-0000-000000000001"], nil)

	err := ds.SetValue(FunctionKey{Class: FunctionClassBrightness}, int64(127))
	assert.NoError(t, err)
	raw, _ := ds.RawValue(FunctionKey{Class: FunctionClassBrightness})
	assert.Equal(t, "49", raw)

	err = ds.SetValue(FunctionKey{Class: FunctionClassUnsupported}, 1)
	assert.Error(t, err)
}

func TestDeviceStateSetValueAllInstances(t *testing.T) {
	snapshot := fixtureSnapshot(t)
	ds := NewDeviceState(snapshot["strp-0000-0000-0000-000000000003"], nil)

	// empty instance fans out to every outlet toggle
	err := ds.SetValue(FunctionKey{Class: FunctionClassToggle}, false)
	assert.NoError(t, err)
	for _, sv := range ds.StatesOfClass(FunctionClassToggle) {
		assert.Equal(t, "off", sv.Value)
	}
}

func TestDeviceStatePushValues(t *testing.T) {
	snapshot := fixtureSnapshot(t)
	ds := NewDeviceState(snapshot["lght-0000-0000-0000-000000000001"], nil)

	err := ds.SetValue(FunctionKey{Class: FunctionClassBrightness}, int64(127))
	assert.NoError(t, err)

	values := ds.PushValues()
	classes := map[FunctionClass]string{}
	for _, v := range values {
		classes[v.FunctionClass] = v.Value
	}
	assert.Equal(t, "49", classes[FunctionClassBrightness])
	assert.Equal(t, "on", classes[FunctionClassPower])
	assert.Equal(t, "2700K", classes[FunctionClassColorTemperature])

	// availability is read-only and never pushed
	_, pushed := classes[FunctionClassAvailable]
	assert.False(t, pushed)
}

func TestDeviceStateReplaceFromDoc(t *testing.T) {
	snapshot := fixtureSnapshot(t)
	ds := NewDeviceState(snapshot["lght-0000-0000-0000-000000000001"], nil)

	assert.NoError(t, ds.SetValue(FunctionKey{Class: FunctionClassBrightness}, int64(255)))

	doc := &StateDoc{
		MetadeviceID: ds.Device().ID,
		Values: []*StateValue{
			{Key: FunctionKey{Class: FunctionClassPower, Instance: "light-power"}, Value: "on"},
			{Key: FunctionKey{Class: FunctionClassBrightness}, Value: "100"},
		},
	}
	ds.ReplaceFromDoc(doc)

	level, ok := ds.IntValue(FunctionKey{Class: FunctionClassBrightness})
	assert.True(t, ok)
	assert.Equal(t, int64(255), level)

	// nil doc keeps the local mutation in place
	assert.NoError(t, ds.SetValue(FunctionKey{Class: FunctionClassBrightness}, int64(0)))
	ds.ReplaceFromDoc(nil)
	raw, _ := ds.RawValue(FunctionKey{Class: FunctionClassBrightness})
	assert.Equal(t, "0", raw)
}

func TestDeviceStatePresets(t *testing.T) {
	snapshot := fixtureSnapshot(t)
	ds := NewDeviceState(snapshot["fan0-0000-0000-0000-000000000002"], nil)

	assert.Equal(t, []string{"comfort-breeze"}, ds.PresetModes())
	assert.Equal(t, PresetModeAuto, ds.ActivePreset())

	ds.SetPreset("comfort-breeze")
	assert.Equal(t, "comfort-breeze", ds.ActivePreset())
	raw, _ := ds.RawValue(FunctionKey{Class: FunctionClassToggle, Instance: "comfort-breeze"})
	assert.Equal(t, "enabled", raw)

	ds.SetPreset(PresetModeAuto)
	assert.Equal(t, PresetModeAuto, ds.ActivePreset())
	raw, _ = ds.RawValue(FunctionKey{Class: FunctionClassToggle, Instance: "comfort-breeze"})
	assert.Equal(t, "disabled", raw)
}

func TestDeviceStateAvailableDefaultsTrue(t *testing.T) {
	ds := NewDeviceState(&Device{ID: "bare"}, nil)
	assert.True(t, ds.Available())
}
