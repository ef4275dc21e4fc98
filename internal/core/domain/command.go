package domain

import "fmt"

// EntityCommandRequest

type EntityCommandRequest interface {
	ActorRequest
	EntityCommand() string
	TargetMetadeviceID() string
}

type EntityCommandRequestMixIn struct {
	ActorRequestMixIn
	MetadeviceID string
}

func (r EntityCommandRequestMixIn) EntityCommand() string {
	return fmt.Sprintf("%T", r)
}

func (r EntityCommandRequestMixIn) TargetMetadeviceID() string {
	return r.MetadeviceID
}

// Entity commands

type LightCommandRequest struct {
	EntityCommandRequestMixIn
	Power           *bool
	Brightness      *int64
	ColorTempMireds *int
}

type LightCommandResponse struct {
	ActorResponseMixIn
}

type FanCommandRequest struct {
	EntityCommandRequestMixIn
	Power      *bool
	Percentage *int
	PresetMode *string
	Direction  *string
}

type FanCommandResponse struct {
	ActorResponseMixIn
}

type SwitchCommandRequest struct {
	EntityCommandRequestMixIn
	OutletIndex int
	Power       bool
}

type SwitchCommandResponse struct {
	ActorResponseMixIn
}

// ensure interface compliance
var _ EntityCommandRequest = (*LightCommandRequest)(nil)
var _ EntityCommandRequest = (*FanCommandRequest)(nil)
var _ EntityCommandRequest = (*SwitchCommandRequest)(nil)
