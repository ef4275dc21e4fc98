package hubspace

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FunctionClass is the vendor's capability category tag for a function or
// state value. Unknown tags parse to FunctionClassUnsupported instead of
// being carried around as raw strings.
type FunctionClass string

const (
	FunctionClassPower            FunctionClass = "power"
	FunctionClassBrightness       FunctionClass = "brightness"
	FunctionClassColorTemperature FunctionClass = "color-temperature"
	FunctionClassFanSpeed         FunctionClass = "fan-speed"
	FunctionClassFanReverse       FunctionClass = "fan-reverse"
	FunctionClassToggle           FunctionClass = "toggle"
	FunctionClassAvailable        FunctionClass = "available"
	FunctionClassUnsupported      FunctionClass = "unsupported"
)

// SettableFunctionClasses gates which state values Push will ever send.
// Availability is read-only and deliberately absent.
var SettableFunctionClasses = map[FunctionClass]bool{
	FunctionClassPower:            true,
	FunctionClassBrightness:       true,
	FunctionClassColorTemperature: true,
	FunctionClassFanSpeed:         true,
	FunctionClassFanReverse:       true,
	FunctionClassToggle:           true,
}

func ParseFunctionClass(s string) FunctionClass {
	switch fc := FunctionClass(s); fc {
	case FunctionClassPower, FunctionClassBrightness, FunctionClassColorTemperature,
		FunctionClassFanSpeed, FunctionClassFanReverse, FunctionClassToggle,
		FunctionClassAvailable:
		return fc
	default:
		return FunctionClassUnsupported
	}
}

// DeviceClass is the vendor's declared device category.
type DeviceClass string

const (
	DeviceClassLight       DeviceClass = "light"
	DeviceClassFan         DeviceClass = "fan"
	DeviceClassCeilingFan  DeviceClass = "ceiling-fan"
	DeviceClassSwitch      DeviceClass = "switch"
	DeviceClassPowerOutlet DeviceClass = "power-outlet"
	DeviceClassUnsupported DeviceClass = "unsupported"
)

func ParseDeviceClass(s string) DeviceClass {
	switch dc := DeviceClass(s); dc {
	case DeviceClassLight, DeviceClassFan, DeviceClassCeilingFan,
		DeviceClassSwitch, DeviceClassPowerOutlet:
		return dc
	default:
		return DeviceClassUnsupported
	}
}

// FunctionKey identifies one capability on a device. Instance is empty for
// singleton capabilities; lookups with an empty instance fall back to the
// first-seen entry of the class.
type FunctionKey struct {
	Class    FunctionClass
	Instance string
}

func (k FunctionKey) String() string {
	if k.Instance == "" {
		return string(k.Class)
	}
	return fmt.Sprintf("%s/%s", k.Class, k.Instance)
}

// Function declares one capability and its legal value labels, sorted by
// the class comparator so that label order defines bounds and percentage
// mapping.
type Function struct {
	Key    FunctionKey
	Values []string
}

// StateValue is one live (class, instance) -> raw value pair. A command
// mutates Value in place; the mutation stays local until pushed.
type StateValue struct {
	Key            FunctionKey
	Value          string
	LastUpdateTime int64
}

// Device is one immutable vendor-reported record from a poll. It is
// superseded wholesale by the next snapshot, never merged field by field.
type Device struct {
	ID           string
	DeviceID     string
	FriendlyName string
	Class        DeviceClass
	Model        string
	Manufacturer string
	Functions    []*Function
	States       []*StateValue
}

// Snapshot is one fully-fetched device listing generation, keyed by
// metadevice id.
type Snapshot map[string]*Device

// StateUpdate is one entry of a state-update (PUT) payload.
type StateUpdate struct {
	FunctionClass    FunctionClass `json:"functionClass"`
	Value            string        `json:"value"`
	LastUpdateTime   int64         `json:"lastUpdateTime"`
	FunctionInstance string        `json:"functionInstance,omitempty"`
}

// StateDoc is the state document returned by the vendor's state-update
// call, parsed into typed values.
type StateDoc struct {
	MetadeviceID string
	Values       []*StateValue
}

const metadeviceTypeID = "metadevice.device"

// wire model

type wireRecord struct {
	TypeID       string          `json:"typeId"`
	ID           string          `json:"id"`
	DeviceID     string          `json:"deviceId"`
	FriendlyName string          `json:"friendlyName"`
	Description  wireDescription `json:"description"`
	State        wireState       `json:"state"`
}

type wireDescription struct {
	Device    wireDeviceInfo `json:"device"`
	Functions []wireFunction `json:"functions"`
}

type wireDeviceInfo struct {
	DeviceClass      string `json:"deviceClass"`
	Model            string `json:"model"`
	ManufacturerName string `json:"manufacturerName"`
}

type wireFunction struct {
	FunctionClass    string `json:"functionClass"`
	FunctionInstance string `json:"functionInstance"`
	Values           []struct {
		Name string `json:"name"`
	} `json:"values"`
}

type wireState struct {
	Values []wireStateValue `json:"values"`
}

type wireStateValue struct {
	FunctionClass    string          `json:"functionClass"`
	FunctionInstance string          `json:"functionInstance"`
	Value            json.RawMessage `json:"value"`
	LastUpdateTime   int64           `json:"lastUpdateTime"`
}

// ParseSnapshot decodes a metadevice listing into a typed Snapshot. Only
// records with typeId metadevice.device are kept. Parsing is defensive:
// unknown function classes become the Unsupported variant and odd value
// encodings (numbers, booleans) are normalized to strings.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var records []wireRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode metadevice listing: %w", err)
	}
	snapshot := Snapshot{}
	for i := range records {
		if records[i].TypeID != metadeviceTypeID {
			continue
		}
		device := records[i].toDevice()
		snapshot[device.ID] = device
	}
	return snapshot, nil
}

// ParseStateDoc decodes the response of a state-update call.
func ParseStateDoc(data []byte) (*StateDoc, error) {
	var doc struct {
		MetadeviceID string           `json:"metadeviceId"`
		Values       []wireStateValue `json:"values"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode state document: %w", err)
	}
	return &StateDoc{
		MetadeviceID: doc.MetadeviceID,
		Values:       parseStateValues(doc.Values),
	}, nil
}

func (r *wireRecord) toDevice() *Device {
	device := &Device{
		ID:           r.ID,
		DeviceID:     r.DeviceID,
		FriendlyName: r.FriendlyName,
		Class:        ParseDeviceClass(r.Description.Device.DeviceClass),
		Model:        r.Description.Device.Model,
		Manufacturer: r.Description.Device.ManufacturerName,
		States:       parseStateValues(r.State.Values),
	}
	for _, fn := range r.Description.Functions {
		values := make([]string, 0, len(fn.Values))
		for _, v := range fn.Values {
			values = append(values, v.Name)
		}
		class := ParseFunctionClass(fn.FunctionClass)
		sortFunctionValues(class, values)
		device.Functions = append(device.Functions, &Function{
			Key:    FunctionKey{Class: class, Instance: fn.FunctionInstance},
			Values: values,
		})
	}
	return device
}

func parseStateValues(values []wireStateValue) []*StateValue {
	parsed := make([]*StateValue, 0, len(values))
	for _, v := range values {
		parsed = append(parsed, &StateValue{
			Key: FunctionKey{
				Class:    ParseFunctionClass(v.FunctionClass),
				Instance: v.FunctionInstance,
			},
			Value:          rawValueString(v.Value),
			LastUpdateTime: v.LastUpdateTime,
		})
	}
	return parsed
}

// rawValueString normalizes a state value of any JSON type to its string
// form. The vendor mostly sends strings but availability is known to
// arrive as a bare number or boolean.
func rawValueString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return strings.TrimSpace(string(raw))
}

func sortFunctionValues(class FunctionClass, values []string) {
	codec, ok := CodecFor(class)
	if !ok || codec.Compare == nil {
		sort.Strings(values)
		return
	}
	sort.SliceStable(values, func(i, j int) bool {
		return codec.Compare(values[i], values[j]) < 0
	})
}
