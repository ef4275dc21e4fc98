package mqtt

import (
	"fmt"

	"hubspace2mqtt/internal/core/domain"
	"hubspace2mqtt/internal/core/events"
)

type HADiscoveryConfig struct {
	Device       HADiscoveryDevice `json:"device"`
	StateTopic   string            `json:"state_topic"`
	CommandTopic string            `json:"command_topic,omitempty"`
	DeviceClass  string            `json:"device_class,omitempty"`
	AvTopic      string            `json:"availability_topic,omitempty"`
	Name         string            `json:"name"`
	UniqueId     string            `json:"unique_id"`
	Platform     string            `json:"platform"`
	PayloadOn    string            `json:"payload_on,omitempty"`
	PayloadOff   string            `json:"payload_off,omitempty"`
	Icon         string            `json:"icon,omitempty"`

	// JSON schema light
	Schema              string   `json:"schema,omitempty"`
	Brightness          bool     `json:"brightness,omitempty"`
	BrightnessScale     int      `json:"brightness_scale,omitempty"`
	SupportedColorModes []string `json:"supported_color_modes,omitempty"`
	MinMireds           int      `json:"min_mireds,omitempty"`
	MaxMireds           int      `json:"max_mireds,omitempty"`

	// fan
	PercentageStateTopic   string   `json:"percentage_state_topic,omitempty"`
	PercentageCommandTopic string   `json:"percentage_command_topic,omitempty"`
	SpeedRangeMax          int      `json:"speed_range_max,omitempty"`
	PresetModeStateTopic   string   `json:"preset_mode_state_topic,omitempty"`
	PresetModeCommandTopic string   `json:"preset_mode_command_topic,omitempty"`
	PresetModes            []string `json:"preset_modes,omitempty"`
	DirectionStateTopic    string   `json:"direction_state_topic,omitempty"`
	DirectionCommandTopic  string   `json:"direction_command_topic,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func (c *MQTTClient) HADiscoveryLightTopic(light domain.GenericLight) string {
	return fmt.Sprintf("%s/light/%s/%s/config", c.cfg.HADiscoveryTopic, light.Device.Id, light.Id)
}

func (c *MQTTClient) HADiscoveryFanTopic(fan domain.GenericFan) string {
	return fmt.Sprintf("%s/fan/%s/%s/config", c.cfg.HADiscoveryTopic, fan.Device.Id, fan.Id)
}

func (c *MQTTClient) HADiscoverySwitchTopic(sw domain.GenericSwitch) string {
	return fmt.Sprintf("%s/switch/%s/%s/config", c.cfg.HADiscoveryTopic, sw.Device.Id, sw.Id)
}

func (c *MQTTClient) HADiscoveryBridgeSensorTopic(bridgeDevice domain.Device) string {
	return fmt.Sprintf("%s/binary_sensor/%s/%s/config", c.cfg.HADiscoveryTopic, bridgeDevice.Id, events.ENTITY_ID_BRIDGE_STATE)
}

func GenericLightToHADiscoveryMessage(client *MQTTClient, light domain.GenericLight) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:       device(light.Device),
		StateTopic:   client.LightStateTopic(light.Id),
		CommandTopic: client.LightSetTopic(light.Id),
		AvTopic:      client.BridgeStateTopic(),
		Name:         light.Name,
		UniqueId:     light.UniqueId,
		Platform:     "mqtt",
		Schema:       "json",
	}
	if light.Brightness {
		disConfig.Brightness = true
		disConfig.BrightnessScale = 255
	}
	if light.ColorTemp {
		disConfig.SupportedColorModes = []string{"color_temp"}
		disConfig.MinMireds = light.MinMireds
		disConfig.MaxMireds = light.MaxMireds
	}
	return disConfig
}

func GenericFanToHADiscoveryMessage(client *MQTTClient, fan domain.GenericFan) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:       device(fan.Device),
		StateTopic:   client.FanStateTopic(fan.Id),
		CommandTopic: client.FanCommandTopic(fan.Id),
		AvTopic:      client.BridgeStateTopic(),
		Name:         fan.Name,
		UniqueId:     fan.UniqueId,
		Platform:     "mqtt",
		PayloadOn:    MQTT_PAYLOAD_ON,
		PayloadOff:   MQTT_PAYLOAD_OFF,
	}
	if fan.SpeedCount > 0 {
		disConfig.PercentageStateTopic = client.FanPercentageStateTopic(fan.Id)
		disConfig.PercentageCommandTopic = client.FanPercentageCommandTopic(fan.Id)
		disConfig.SpeedRangeMax = fan.SpeedCount
	}
	if len(fan.PresetModes) > 0 {
		disConfig.PresetModeStateTopic = client.FanPresetStateTopic(fan.Id)
		disConfig.PresetModeCommandTopic = client.FanPresetCommandTopic(fan.Id)
		disConfig.PresetModes = fan.PresetModes
	}
	if fan.Direction {
		disConfig.DirectionStateTopic = client.FanDirectionStateTopic(fan.Id)
		disConfig.DirectionCommandTopic = client.FanDirectionCommandTopic(fan.Id)
	}
	return disConfig
}

func GenericSwitchToHADiscoveryMessage(client *MQTTClient, sw domain.GenericSwitch) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:       device(sw.Device),
		StateTopic:   client.SwitchStateTopic(sw.Id),
		CommandTopic: client.SwitchCommandTopic(sw.Id),
		DeviceClass:  sw.DeviceClass,
		AvTopic:      client.BridgeStateTopic(),
		Name:         sw.Name,
		UniqueId:     sw.UniqueId,
		Icon:         sw.Icon,
		Platform:     "mqtt",
		PayloadOn:    MQTT_PAYLOAD_ON,
		PayloadOff:   MQTT_PAYLOAD_OFF,
	}
}

// BridgeSensorToHADiscoveryMessage registers the bridge availability
// topic as a connectivity binary sensor.
func BridgeSensorToHADiscoveryMessage(client *MQTTClient, bridgeDevice domain.Device) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:      device(bridgeDevice),
		StateTopic:  client.BridgeStateTopic(),
		DeviceClass: "connectivity",
		Name:        "Connection state",
		UniqueId:    fmt.Sprintf("uid_%s_%s", bridgeDevice.Id, events.ENTITY_ID_BRIDGE_STATE),
		Platform:    "mqtt",
		PayloadOn:   MQTT_PAYLOAD_ONLINE,
		PayloadOff:  MQTT_PAYLOAD_OFFLINE,
	}
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
