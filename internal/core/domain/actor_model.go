package domain

import "hubspace2mqtt/pkg/hubspace"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_HUBSPACE     = "hubspace"
	ACTOR_ID_COORDINATOR  = "coordinator"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type FetchDevicesRequest struct {
	ActorRequestMixIn
}

type FetchDevicesResponse struct {
	ActorResponseMixIn
	Snapshot hubspace.Snapshot
}

type PushStateRequest struct {
	ActorRequestMixIn
	MetadeviceID string
	Values       []hubspace.StateUpdate
}

type PushStateResponse struct {
	ActorResponseMixIn
	MetadeviceID string
	Doc          *hubspace.StateDoc
}

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot hubspace.Snapshot
}

type RefreshRequest struct {
	ActorRequestMixIn
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishEntityUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  EntityUpdateEvent
}

type PublishEntityUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Lights   []GenericLight
	Fans     []GenericFan
	Switches []GenericSwitch
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
