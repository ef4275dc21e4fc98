package hubspace

import (
	"fmt"
	"strconv"
	"strings"
)

// Codec translates between a function class's raw wire value and its
// semantic Go value. Compare orders raw values and descriptor labels.
type Codec struct {
	Decode  func(raw string) (any, error)
	Encode  func(value any) (string, error)
	Compare func(a, b string) int
}

// codecs is resolved by lookup so that adding a class is a table entry,
// not a switch edit. Classes without an entry have no semantic value.
var codecs = map[FunctionClass]Codec{
	FunctionClassPower: {
		Decode:  decodeOnOff,
		Encode:  encodeOnOff("on", "off"),
		Compare: strings.Compare,
	},
	FunctionClassToggle: {
		Decode:  decodeOnOff,
		Encode:  encodeOnOff("on", "off"),
		Compare: strings.Compare,
	},
	FunctionClassBrightness: {
		Decode:  decodeBrightness,
		Encode:  encodeBrightness,
		Compare: compareNumeric,
	},
	FunctionClassColorTemperature: {
		Decode:  decodeColorTemperature,
		Encode:  encodeColorTemperature,
		Compare: compareKelvin,
	},
	FunctionClassFanSpeed: {
		Decode:  decodeString,
		Encode:  encodeString,
		Compare: compareLabelSuffix,
	},
	FunctionClassFanReverse: {
		Decode:  decodeString,
		Encode:  encodeString,
		Compare: strings.Compare,
	},
	FunctionClassAvailable: {
		Decode: decodeAvailable,
		Encode: func(value any) (string, error) {
			b, ok := value.(bool)
			if !ok {
				return "", fmt.Errorf("availability value must be bool, got %T", value)
			}
			return strconv.FormatBool(b), nil
		},
		Compare: strings.Compare,
	},
}

// CodecFor returns the codec for a function class. The second result is
// false for classes with no semantic translation (including Unsupported).
func CodecFor(class FunctionClass) (Codec, bool) {
	codec, ok := codecs[class]
	return codec, ok
}

// decodeOnOff treats "on" and "enabled" as true and anything else as
// false, matching the vendor's two on-state spellings.
func decodeOnOff(raw string) (any, error) {
	return raw == "on" || raw == "enabled", nil
}

func encodeOnOff(on, off string) func(any) (string, error) {
	return func(value any) (string, error) {
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("on/off value must be bool, got %T", value)
		}
		if b {
			return on, nil
		}
		return off, nil
	}
}

// Brightness is an integer percent on the wire and a 0-255 level on the
// semantic side. The scaling is integer division, so a round trip may
// drift by one level.
func decodeBrightness(raw string) (any, error) {
	pct, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid brightness %q: %w", raw, err)
	}
	return pct * 255 / 100, nil
}

func encodeBrightness(value any) (string, error) {
	level, err := toInt64(value)
	if err != nil {
		return "", fmt.Errorf("invalid brightness value: %w", err)
	}
	if level < 0 {
		level = 0
	} else if level > 255 {
		level = 255
	}
	return strconv.FormatInt(level*100/255, 10), nil
}

// Color temperature raw form is "NNNNK".
func decodeColorTemperature(raw string) (any, error) {
	kelvin, err := strconv.ParseInt(strings.TrimSuffix(raw, "K"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid color temperature %q: %w", raw, err)
	}
	return kelvin, nil
}

func encodeColorTemperature(value any) (string, error) {
	kelvin, err := toInt64(value)
	if err != nil {
		return "", fmt.Errorf("invalid color temperature value: %w", err)
	}
	return fmt.Sprintf("%dK", kelvin), nil
}

func decodeString(raw string) (any, error) {
	return raw, nil
}

func encodeString(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value must be string, got %T", value)
	}
	return s, nil
}

// decodeAvailable accepts the bool, numeric and on/off spellings seen in
// the wild for the availability flag.
func decodeAvailable(raw string) (any, error) {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b, nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n != 0, nil
	}
	return raw == "on", nil
}

func compareNumeric(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return int(na - nb)
}

func compareKelvin(a, b string) int {
	return compareNumeric(strings.TrimSuffix(a, "K"), strings.TrimSuffix(b, "K"))
}

// compareLabelSuffix orders labels like "fan-speed-050" by their numeric
// suffix so descriptor order matches physical speed order.
func compareLabelSuffix(a, b string) int {
	na, okA := labelSuffix(a)
	nb, okB := labelSuffix(b)
	if !okA || !okB {
		return strings.Compare(a, b)
	}
	return na - nb
}

func labelSuffix(label string) (int, bool) {
	idx := strings.LastIndex(label, "-")
	if idx < 0 || idx == len(label)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(label[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", value)
	}
}
