package hubspace

import (
	"fmt"

	"go.uber.org/zap"
)

// PresetModeAuto is the preset reported when no preset toggle is enabled
// and the preset that disables all of them when set.
const PresetModeAuto = "auto"

// DeviceState indexes one snapshot device's functions and state values
// for reading and mutation. Entries keep wire order per class, so
// no-instance lookups are deterministic (first seen wins). It holds no
// locks: the owning actor serializes all access.
type DeviceState struct {
	device    *Device
	functions map[FunctionClass][]*Function
	states    map[FunctionClass][]*StateValue
	logger    *zap.Logger
}

func NewDeviceState(device *Device, logger *zap.Logger) *DeviceState {
	if logger == nil {
		logger = zap.NewNop()
	}
	ds := &DeviceState{
		device: device,
		logger: logger.With(zap.String("metadevice", device.ID)),
	}
	ds.reindex()
	return ds
}

func (ds *DeviceState) Device() *Device {
	return ds.device
}

func (ds *DeviceState) reindex() {
	ds.functions = map[FunctionClass][]*Function{}
	ds.states = map[FunctionClass][]*StateValue{}
	for _, fn := range ds.device.Functions {
		if fn.Key.Class == FunctionClassUnsupported {
			continue
		}
		ds.functions[fn.Key.Class] = append(ds.functions[fn.Key.Class], fn)
	}
	for _, sv := range ds.device.States {
		if sv.Key.Class == FunctionClassUnsupported {
			continue
		}
		ds.states[sv.Key.Class] = append(ds.states[sv.Key.Class], sv)
	}
}

// Function resolves a function descriptor. An empty instance matches the
// first entry of the class; if several instances exist a warning is
// logged and the first-seen entry is returned.
func (ds *DeviceState) Function(key FunctionKey) *Function {
	entries := ds.functions[key.Class]
	if len(entries) == 0 {
		return nil
	}
	if key.Instance == "" {
		if len(entries) > 1 {
			ds.logger.Warn("ambiguous function lookup, taking first entry",
				zap.String("class", string(key.Class)), zap.Int("instances", len(entries)))
		}
		return entries[0]
	}
	for _, fn := range entries {
		if fn.Key.Instance == key.Instance {
			return fn
		}
	}
	return nil
}

// FunctionValues returns the sorted legal value labels of a function, or
// nil when the device has no such function.
func (ds *DeviceState) FunctionValues(key FunctionKey) []string {
	fn := ds.Function(key)
	if fn == nil {
		return nil
	}
	return fn.Values
}

// State resolves a live state value with the same instance semantics as
// Function.
func (ds *DeviceState) State(key FunctionKey) *StateValue {
	entries := ds.states[key.Class]
	if len(entries) == 0 {
		return nil
	}
	if key.Instance == "" {
		if len(entries) > 1 {
			ds.logger.Warn("ambiguous state lookup, taking first entry",
				zap.String("class", string(key.Class)), zap.Int("instances", len(entries)))
		}
		return entries[0]
	}
	for _, sv := range entries {
		if sv.Key.Instance == key.Instance {
			return sv
		}
	}
	return nil
}

// StatesOfClass returns all state values of a class in wire order.
func (ds *DeviceState) StatesOfClass(class FunctionClass) []*StateValue {
	return ds.states[class]
}

func (ds *DeviceState) RawValue(key FunctionKey) (string, bool) {
	sv := ds.State(key)
	if sv == nil {
		return "", false
	}
	return sv.Value, true
}

// Value decodes a state value through the class codec.
func (ds *DeviceState) Value(key FunctionKey) (any, bool) {
	raw, ok := ds.RawValue(key)
	if !ok {
		return nil, false
	}
	codec, ok := CodecFor(key.Class)
	if !ok {
		return nil, false
	}
	value, err := codec.Decode(raw)
	if err != nil {
		ds.logger.Warn("could not decode state value",
			zap.String("key", key.String()), zap.String("raw", raw), zap.Error(err))
		return nil, false
	}
	return value, true
}

func (ds *DeviceState) BoolValue(key FunctionKey) (bool, bool) {
	value, ok := ds.Value(key)
	if !ok {
		return false, false
	}
	b, ok := value.(bool)
	return b, ok
}

func (ds *DeviceState) IntValue(key FunctionKey) (int64, bool) {
	value, ok := ds.Value(key)
	if !ok {
		return 0, false
	}
	n, ok := value.(int64)
	return n, ok
}

func (ds *DeviceState) StringValue(key FunctionKey) (string, bool) {
	value, ok := ds.Value(key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// Available reports the availability flag. Devices without one are
// considered available.
func (ds *DeviceState) Available() bool {
	available, ok := ds.BoolValue(FunctionKey{Class: FunctionClassAvailable})
	if !ok {
		return true
	}
	return available
}

// SetValue encodes a semantic value through the class codec and applies
// it. An empty instance applies the value to every entry of the class,
// which is how a device-level power off reaches all outlets at once.
func (ds *DeviceState) SetValue(key FunctionKey, value any) error {
	codec, ok := CodecFor(key.Class)
	if !ok {
		return fmt.Errorf("no codec for function class %q", key.Class)
	}
	raw, err := codec.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	ds.setRaw(key, raw)
	return nil
}

// SetRawValue applies a raw wire value without codec translation. Preset
// toggles use it to write "enabled"/"disabled", which the on/off codec
// cannot produce.
func (ds *DeviceState) SetRawValue(key FunctionKey, raw string) {
	ds.setRaw(key, raw)
}

func (ds *DeviceState) setRaw(key FunctionKey, raw string) {
	for _, sv := range ds.states[key.Class] {
		if key.Instance != "" && sv.Key.Instance != key.Instance {
			continue
		}
		sv.Value = raw
	}
}

// ActivePreset scans the instanced toggle states: the first one reading
// "enabled" names the active preset, none means auto.
func (ds *DeviceState) ActivePreset() string {
	for _, sv := range ds.states[FunctionClassToggle] {
		if sv.Key.Instance != "" && sv.Value == "enabled" {
			return sv.Key.Instance
		}
	}
	return PresetModeAuto
}

// PresetModes lists the selectable preset names: instanced toggle
// functions whose value set contains "enabled".
func (ds *DeviceState) PresetModes() []string {
	var modes []string
	for _, fn := range ds.functions[FunctionClassToggle] {
		if fn.Key.Instance == "" {
			continue
		}
		for _, v := range fn.Values {
			if v == "enabled" {
				modes = append(modes, fn.Key.Instance)
				break
			}
		}
	}
	return modes
}

// SetPreset enables the named preset toggle and disables the others.
// The auto preset disables them all.
func (ds *DeviceState) SetPreset(name string) {
	for _, sv := range ds.states[FunctionClassToggle] {
		if sv.Key.Instance == "" {
			continue
		}
		value := "disabled"
		if name != PresetModeAuto && sv.Key.Instance == name {
			value = "enabled"
		}
		sv.Value = value
	}
}

// PushValues assembles the state-update payload: every state value with a
// non-empty raw value whose class is settable, in wire order. Read-only
// classes never leave the device.
func (ds *DeviceState) PushValues() []StateUpdate {
	var values []StateUpdate
	for _, sv := range ds.device.States {
		if sv.Value == "" || !SettableFunctionClasses[sv.Key.Class] {
			continue
		}
		values = append(values, StateUpdate{
			FunctionClass:    sv.Key.Class,
			Value:            sv.Value,
			FunctionInstance: sv.Key.Instance,
		})
	}
	return values
}

// ReplaceFromDoc swaps the device's state values for the ones in a push
// response and reindexes. A nil doc leaves the local mutation in place
// until the next poll reconciles it.
func (ds *DeviceState) ReplaceFromDoc(doc *StateDoc) {
	if doc == nil || doc.Values == nil {
		return
	}
	ds.device.States = doc.Values
	ds.reindex()
}
