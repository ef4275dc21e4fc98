package actor

import (
	"sync"
	"testing"
	"time"

	adactor "hubspace2mqtt/internal/adapter/actor"
	"hubspace2mqtt/internal/core/domain"
	"hubspace2mqtt/internal/util"
	"hubspace2mqtt/internal/util/actorutil"
	"hubspace2mqtt/pkg/hubspace"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type eventCollector struct {
	mu     sync.Mutex
	events []any
}

func (c *eventCollector) collect(value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, value)
}

func (c *eventCollector) snapshot() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any{}, c.events...)
}

func spawnCoordinator(t *testing.T, service *hubspace.TestService) (*actor.ActorSystem, *actor.RootContext, *actor.PID, *eventCollector) {
	t.Helper()

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	hubspaceProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewHubspaceActor(service, 5*time.Second, logger)
	})
	hubspacePID := context.Spawn(hubspaceProps)

	es := &eventstream.EventStream{}
	collector := &eventCollector{}
	es.Subscribe(collector.collect)

	coordinatorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewCoordinatorActor(&cfg, hubspacePID, es, logger)
	})
	coordinatorPID := context.Spawn(coordinatorProps)

	return as, context, coordinatorPID, collector
}

func TestCoordinatorFirstFetch(t *testing.T) {

	assert := assert.New(t)

	service := hubspace.NewTestService()
	as, context, pid, collector := spawnCoordinator(t, service)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.GetSnapshotRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetSnapshotResponse)
	assert.Len(resp.Snapshot, 4, "snapshot devices")

	// one light, one fan, three outlets and one wall switch
	events := collector.snapshot()
	assert.Len(events, 6, "entity update events")

	healthResult, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	health := healthResult.(domain.ActorHealthResponse)
	assert.True(health.Healthy)
	assert.Equal("idle", health.State)

	context.Stop(pid)
	as.Shutdown()
}

func TestCoordinatorFetchFailureKeepsDegradedHealth(t *testing.T) {

	assert := assert.New(t)

	service := hubspace.NewTestService()
	service.FailFetch = true
	as, context, pid, _ := spawnCoordinator(t, service)

	time.Sleep(1 * time.Second)

	healthResult, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	health := healthResult.(domain.ActorHealthResponse)
	assert.False(health.Healthy)
	assert.Equal("degraded", health.State)

	context.Stop(pid)
	as.Shutdown()
}

func TestCoordinatorFetchFailureRetainsSnapshot(t *testing.T) {

	assert := assert.New(t)

	service := hubspace.NewTestService()
	as, context, pid, _ := spawnCoordinator(t, service)

	time.Sleep(1 * time.Second)

	// break the vendor and force a refresh
	service.FailFetch = true
	context.Send(pid, domain.RefreshRequest{})

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.GetSnapshotRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetSnapshotResponse)
	assert.Len(resp.Snapshot, 4, "previous snapshot retained")

	healthResult, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	health := healthResult.(domain.ActorHealthResponse)
	assert.False(health.Healthy, "degraded after failed refresh")

	context.Stop(pid)
	as.Shutdown()
}

func TestCoordinatorSwitchCommand(t *testing.T) {

	assert := assert.New(t)

	service := hubspace.NewTestService()
	as, context, pid, collector := spawnCoordinator(t, service)

	time.Sleep(1 * time.Second)

	before := len(collector.snapshot())

	cmd := domain.SwitchCommandRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
			MetadeviceID: "strp-0000-0000-0000-000000000003",
		},
		OutletIndex: 2,
		Power:       true,
	}
	result, err := context.RequestFuture(pid, cmd, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SwitchCommandResponse)
	assert.False(resp.HasResponseError())

	assert.Len(service.Pushed, 1, "one push")
	pushed := service.Pushed[0]
	assert.Equal("strp-0000-0000-0000-000000000003", pushed.MetadeviceID)
	var outlet2 string
	for _, v := range pushed.Values {
		if v.FunctionInstance == "outlet-2" {
			outlet2 = v.Value
		}
	}
	assert.Equal("on", outlet2, "outlet-2 pushed on")

	// a push publishes refreshed events for every outlet of the strip
	assert.Equal(before+3, len(collector.snapshot()), "outlet events republished")

	context.Stop(pid)
	as.Shutdown()
}

func TestCoordinatorFanPercentageCommand(t *testing.T) {

	assert := assert.New(t)

	service := hubspace.NewTestService()
	as, context, pid, _ := spawnCoordinator(t, service)

	time.Sleep(1 * time.Second)

	pct := 100
	cmd := domain.FanCommandRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
			MetadeviceID: "fan0-0000-0000-0000-000000000002",
		},
		Percentage: &pct,
	}
	result, err := context.RequestFuture(pid, cmd, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.FanCommandResponse)
	assert.False(resp.HasResponseError())

	assert.Len(service.Pushed, 1)
	values := map[string]string{}
	for _, v := range service.Pushed[0].Values {
		values[string(v.FunctionClass)+"/"+v.FunctionInstance] = v.Value
	}
	assert.Equal("fan-speed-100", values["fan-speed/fan-speed"], "top speed label")
	assert.Equal("on", values["power/fan-power"], "power implied on")

	context.Stop(pid)
	as.Shutdown()
}

func TestCoordinatorLightCommandSnapsColorTemp(t *testing.T) {

	assert := assert.New(t)

	service := hubspace.NewTestService()
	as, context, pid, _ := spawnCoordinator(t, service)

	time.Sleep(1 * time.Second)

	on := true
	mireds := 280 // ~3571K, nearest supported label is 3500K
	cmd := domain.LightCommandRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
			MetadeviceID: "lght-0000-0000-0000-000000000001",
		},
		Power:           &on,
		ColorTempMireds: &mireds,
	}
	result, err := context.RequestFuture(pid, cmd, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.LightCommandResponse)
	assert.False(resp.HasResponseError())

	assert.Len(service.Pushed, 1)
	values := map[string]string{}
	for _, v := range service.Pushed[0].Values {
		values[string(v.FunctionClass)] = v.Value
	}
	assert.Equal("3500K", values["color-temperature"])
	assert.Equal("on", values["power"])

	context.Stop(pid)
	as.Shutdown()
}

func TestCoordinatorUnknownDeviceCommand(t *testing.T) {

	assert := assert.New(t)

	service := hubspace.NewTestService()
	as, context, pid, _ := spawnCoordinator(t, service)

	time.Sleep(1 * time.Second)

	cmd := domain.SwitchCommandRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
			MetadeviceID: "nope-0000-0000-0000-000000000099",
		},
		Power: true,
	}
	result, err := context.RequestFuture(pid, cmd, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SwitchCommandResponse)
	assert.True(resp.HasResponseError())
	assert.Empty(service.Pushed)

	context.Stop(pid)
	as.Shutdown()
}
