package domain

import "fmt"

type EntityUpdateEventMixIn struct {
	Id string
}

type EntityUpdateEvent interface {
	EntityUpdateEvent() string
	EntityId() string
}

func (e EntityUpdateEventMixIn) EntityUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e EntityUpdateEventMixIn) EntityId() string {
	return e.Id
}

type LightStateUpdateEvent struct {
	EntityUpdateEventMixIn
	Power           bool
	Brightness      int64
	HasBrightness   bool
	ColorTempMireds int
	Available       bool
}

type FanStateUpdateEvent struct {
	EntityUpdateEventMixIn
	Power      bool
	Percentage int
	PresetMode string
	Direction  string
	Available  bool
}

type SwitchStateUpdateEvent struct {
	EntityUpdateEventMixIn
	Power     bool
	Available bool
}

type BridgeStateUpdateEvent struct {
	EntityUpdateEventMixIn
	Value bool
}
