package hubspace

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SwitchRef points at one switch entity. OutletIndex 0 means the device
// itself; a positive index addresses one outlet of a multi-outlet strip
// through toggle instance "outlet-{index}".
type SwitchRef struct {
	MetadeviceID string
	OutletIndex  int
}

// UniqueID is the entity id used on topics and in discovery. Outlets get
// a numeric suffix so each socket is its own entity.
func (r SwitchRef) UniqueID() string {
	if r.OutletIndex == 0 {
		return r.MetadeviceID
	}
	return fmt.Sprintf("%s_%d", r.MetadeviceID, r.OutletIndex)
}

// ToggleKey is the state key this switch entity reads and writes.
func (r SwitchRef) ToggleKey() FunctionKey {
	if r.OutletIndex == 0 {
		return FunctionKey{Class: FunctionClassToggle}
	}
	return FunctionKey{Class: FunctionClassToggle, Instance: OutletInstance(r.OutletIndex)}
}

func OutletInstance(index int) string {
	return fmt.Sprintf("outlet-%d", index)
}

// ParseSwitchUniqueID splits a switch unique id back into its ref.
// Metadevice ids contain no underscores, so a "_N" suffix is unambiguous.
func ParseSwitchUniqueID(uniqueID string) SwitchRef {
	if i := strings.LastIndex(uniqueID, "_"); i > 0 {
		if idx, err := strconv.Atoi(uniqueID[i+1:]); err == nil && idx > 0 {
			return SwitchRef{MetadeviceID: uniqueID[:i], OutletIndex: idx}
		}
	}
	return SwitchRef{MetadeviceID: uniqueID}
}

// Lights returns the metadevice ids of all light devices, sorted.
func (s Snapshot) Lights() []string {
	return s.idsOfClass(DeviceClassLight)
}

// Fans returns the metadevice ids of all fan and ceiling-fan devices,
// sorted.
func (s Snapshot) Fans() []string {
	return s.idsOfClass(DeviceClassFan, DeviceClassCeilingFan)
}

// Switches returns one ref per switch entity, splitting multi-outlet
// devices into per-outlet entities by toggle-function count. Zero or one
// toggle yields a single unsuffixed entity.
func (s Snapshot) Switches() []SwitchRef {
	var refs []SwitchRef
	for _, id := range s.idsOfClass(DeviceClassSwitch, DeviceClassPowerOutlet) {
		count := s[id].toggleCount()
		if count <= 1 {
			refs = append(refs, SwitchRef{MetadeviceID: id})
			continue
		}
		for i := 1; i <= count; i++ {
			refs = append(refs, SwitchRef{MetadeviceID: id, OutletIndex: i})
		}
	}
	return refs
}

func (s Snapshot) idsOfClass(classes ...DeviceClass) []string {
	var ids []string
	for id, device := range s {
		for _, class := range classes {
			if device.Class == class {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func (d *Device) toggleCount() int {
	count := 0
	for _, fn := range d.Functions {
		if fn.Key.Class == FunctionClassToggle {
			count++
		}
	}
	return count
}
