package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"hubspace2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"

	// JSON schema lights require uppercase state payloads
	MQTT_PAYLOAD_LIGHT_ON  = "ON"
	MQTT_PAYLOAD_LIGHT_OFF = "OFF"

	COMMAND_LIGHT_SET      = "light_set"
	COMMAND_FAN_POWER      = "fan_power"
	COMMAND_FAN_PERCENTAGE = "fan_percentage"
	COMMAND_FAN_PRESET     = "fan_preset"
	COMMAND_FAN_DIRECTION  = "fan_direction"
	COMMAND_SWITCH_POWER   = "switch_power"

	DIRECTION_FORWARD = "forward"
	DIRECTION_REVERSE = "reverse"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("hubspace2mqtt_%s", uuid.NewString()[0:8]))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:              mqtt.NewClient(opts),
		cfg:                 cfg.MQTT,
		lightSetRegexp:      lightSetExtractor(cfg.MQTT.BaseTopic),
		fanCommandRegexp:    fanCommandExtractor(cfg.MQTT.BaseTopic),
		fanPercentageRegexp: fanPercentageExtractor(cfg.MQTT.BaseTopic),
		fanPresetRegexp:     fanPresetExtractor(cfg.MQTT.BaseTopic),
		fanDirectionRegexp:  fanDirectionExtractor(cfg.MQTT.BaseTopic),
		switchCommandRegexp: switchCommandExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client              mqtt.Client
	cfg                 config.MQTTConfig
	lightSetRegexp      *regexp.Regexp
	fanCommandRegexp    *regexp.Regexp
	fanPercentageRegexp *regexp.Regexp
	fanPresetRegexp     *regexp.Regexp
	fanDirectionRegexp  *regexp.Regexp
	switchCommandRegexp *regexp.Regexp
}

type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Payload  string
}

// LightCommandPayload is the JSON schema light set payload.
type LightCommandPayload struct {
	State      string `json:"state,omitempty"`
	Brightness *int64 `json:"brightness,omitempty"`
	ColorTemp  *int   `json:"color_temp,omitempty"`
}

// LightStatePayload is the JSON schema light state payload.
type LightStatePayload struct {
	State      string `json:"state"`
	Brightness *int64 `json:"brightness,omitempty"`
	ColorTemp  *int   `json:"color_temp,omitempty"`
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) LightStateTopic(id string) string {
	return fmt.Sprintf("%s/light/%s/state", c.baseTopic(), id)
}

func (c *MQTTClient) LightSetTopic(id string) string {
	return fmt.Sprintf("%s/light/%s/set", c.baseTopic(), id)
}

func (c *MQTTClient) FanStateTopic(id string) string {
	return fmt.Sprintf("%s/fan/%s/state", c.baseTopic(), id)
}

func (c *MQTTClient) FanCommandTopic(id string) string {
	return fmt.Sprintf("%s/fan/%s/command", c.baseTopic(), id)
}

func (c *MQTTClient) FanPercentageStateTopic(id string) string {
	return fmt.Sprintf("%s/fan/%s/percentage/state", c.baseTopic(), id)
}

func (c *MQTTClient) FanPercentageCommandTopic(id string) string {
	return fmt.Sprintf("%s/fan/%s/percentage/set", c.baseTopic(), id)
}

func (c *MQTTClient) FanPresetStateTopic(id string) string {
	return fmt.Sprintf("%s/fan/%s/preset/state", c.baseTopic(), id)
}

func (c *MQTTClient) FanPresetCommandTopic(id string) string {
	return fmt.Sprintf("%s/fan/%s/preset/set", c.baseTopic(), id)
}

func (c *MQTTClient) FanDirectionStateTopic(id string) string {
	return fmt.Sprintf("%s/fan/%s/direction/state", c.baseTopic(), id)
}

func (c *MQTTClient) FanDirectionCommandTopic(id string) string {
	return fmt.Sprintf("%s/fan/%s/direction/set", c.baseTopic(), id)
}

func (c *MQTTClient) SwitchStateTopic(switchId string) string {
	return fmt.Sprintf("%s/switch/%s/state", c.baseTopic(), switchId)
}

func (c *MQTTClient) SwitchCommandTopic(switchId string) string {
	return fmt.Sprintf("%s/switch/%s/command", c.baseTopic(), switchId)
}

// ParseMQTTCommand matches an incoming message against the command topic
// extractors. Invalid payloads fail here so actors only ever see
// well-formed commands.
func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	topic := msg.Topic()
	payload := string(msg.Payload())

	if id, ok := extract(c.lightSetRegexp, topic); ok {
		var parsed LightCommandPayload
		if err := json.Unmarshal(msg.Payload(), &parsed); err != nil {
			return nil, fmt.Errorf("invalid light payload: %w", err)
		}
		return &ParsedMQTTCommand{DeviceId: id, Command: COMMAND_LIGHT_SET, Payload: payload}, nil
	}
	if id, ok := extract(c.fanPercentageRegexp, topic); ok {
		if _, err := strconv.Atoi(payload); err != nil {
			return nil, fmt.Errorf("invalid fan percentage payload: %w", err)
		}
		return &ParsedMQTTCommand{DeviceId: id, Command: COMMAND_FAN_PERCENTAGE, Payload: payload}, nil
	}
	if id, ok := extract(c.fanPresetRegexp, topic); ok {
		return &ParsedMQTTCommand{DeviceId: id, Command: COMMAND_FAN_PRESET, Payload: payload}, nil
	}
	if id, ok := extract(c.fanDirectionRegexp, topic); ok {
		if payload != DIRECTION_FORWARD && payload != DIRECTION_REVERSE {
			return nil, errors.New("invalid fan direction payload")
		}
		return &ParsedMQTTCommand{DeviceId: id, Command: COMMAND_FAN_DIRECTION, Payload: payload}, nil
	}
	if id, ok := extract(c.fanCommandRegexp, topic); ok {
		return &ParsedMQTTCommand{DeviceId: id, Command: COMMAND_FAN_POWER, Payload: payload}, nil
	}
	if id, ok := extract(c.switchCommandRegexp, topic); ok {
		return &ParsedMQTTCommand{DeviceId: id, Command: COMMAND_SWITCH_POWER, Payload: payload}, nil
	}
	return nil, errors.New("invalid command")
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.commandTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT unsubscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/#", c.baseTopic())
}

func extract(re *regexp.Regexp, topic string) (string, bool) {
	matches := re.FindStringSubmatch(topic)
	if len(matches) != 2 {
		return "", false
	}
	return matches[1], true
}

// metadevice ids are uuids, so the id charset includes dashes
const entityIdPattern = "([a-zA-Z0-9_-]+)"

func lightSetExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/light/%s/set$", baseTopic, entityIdPattern))
}

func fanCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/fan/%s/command$", baseTopic, entityIdPattern))
}

func fanPercentageExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/fan/%s/percentage/set$", baseTopic, entityIdPattern))
}

func fanPresetExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/fan/%s/preset/set$", baseTopic, entityIdPattern))
}

func fanDirectionExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/fan/%s/direction/set$", baseTopic, entityIdPattern))
}

func switchCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/switch/%s/command$", baseTopic, entityIdPattern))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
