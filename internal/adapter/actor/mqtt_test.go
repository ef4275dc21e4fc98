package actor

import (
	"testing"
	"time"

	"hubspace2mqtt/internal/core/domain"
	"hubspace2mqtt/internal/mqtt"
	"hubspace2mqtt/internal/util"
	"hubspace2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newOfflineMQTTActor(t *testing.T) *MQTTActor {
	t.Helper()
	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	act := NewMQTTActor(&cfg, logger)
	act.client = mqtt.CreateMQTTClient(&cfg, mqtt.OptsFromConfig(&cfg), nil, nil)
	return act
}

func TestLightEventToMQTTMessages(t *testing.T) {

	assert := assert.New(t)

	act := newOfflineMQTTActor(t)

	brightness := int64(127)
	messages := act.event2MQTTMessages(domain.LightStateUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{
			Id: "lght-0000-0000-0000-000000000001",
		},
		Power:           true,
		Brightness:      brightness,
		HasBrightness:   true,
		ColorTempMireds: 370,
		Available:       true,
	})

	assert.Len(messages, 1)
	assert.Equal("hubspace2mqtt/light/lght-0000-0000-0000-000000000001/state", messages[0].topic)
	assert.JSONEq(`{"state":"ON","brightness":127,"color_temp":370}`, messages[0].message)
	assert.True(messages[0].retain)
}

func TestFanEventToMQTTMessages(t *testing.T) {

	assert := assert.New(t)

	act := newOfflineMQTTActor(t)

	messages := act.event2MQTTMessages(domain.FanStateUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{
			Id: "fan0-0000-0000-0000-000000000002",
		},
		Power:      true,
		Percentage: 33,
		PresetMode: "auto",
		Direction:  "forward",
		Available:  true,
	})

	assert.Len(messages, 4)
	assert.Equal("hubspace2mqtt/fan/fan0-0000-0000-0000-000000000002/state", messages[0].topic)
	assert.Equal("on", messages[0].message)
	assert.Equal("hubspace2mqtt/fan/fan0-0000-0000-0000-000000000002/percentage/state", messages[1].topic)
	assert.Equal("33", messages[1].message)
	assert.Equal("hubspace2mqtt/fan/fan0-0000-0000-0000-000000000002/preset/state", messages[2].topic)
	assert.Equal("auto", messages[2].message)
	assert.Equal("hubspace2mqtt/fan/fan0-0000-0000-0000-000000000002/direction/state", messages[3].topic)
	assert.Equal("forward", messages[3].message)
}

func TestSwitchEventToMQTTMessages(t *testing.T) {

	assert := assert.New(t)

	act := newOfflineMQTTActor(t)

	messages := act.event2MQTTMessages(domain.SwitchStateUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{
			Id: "strp-0000-0000-0000-000000000003_2",
		},
		Power:     false,
		Available: true,
	})

	assert.Len(messages, 1)
	assert.Equal("hubspace2mqtt/switch/strp-0000-0000-0000-000000000003_2/state", messages[0].topic)
	assert.Equal("off", messages[0].message)
}

func TestBridgeEventToMQTTMessages(t *testing.T) {

	assert := assert.New(t)

	act := newOfflineMQTTActor(t)

	messages := act.event2MQTTMessages(domain.BridgeStateUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{
			Id: "bridge",
		},
		Value: true,
	})

	assert.Len(messages, 1)
	assert.Equal("hubspace2mqtt/bridge/state", messages[0].topic)
	assert.Equal("online", messages[0].message)
}

func TestDummyMQTTActorHealthCheck(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	context.Stop(pid)

	as.Shutdown()
}

func TestMQTTActorStopBeforeClientCreated(t *testing.T) {

	cfg := util.LoadTestConfig()
	act := NewMQTTActor(&cfg, zap.NewNop())

	// a restart before Started finished leaves client nil
	assert.NotPanics(t, func() { act.stop() })
}
