package actor

import (
	"fmt"
	"time"

	"hubspace2mqtt/internal/config"
	"hubspace2mqtt/internal/core/domain"
	"hubspace2mqtt/internal/core/events"
	. "hubspace2mqtt/internal/util/actorutil"
	"hubspace2mqtt/pkg/hubspace"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// CoordinatorActor owns the device snapshot. It polls the vendor through
// the hubspace actor, publishes entity update events on every successful
// poll and turns entity commands into state pushes. A failed poll keeps
// the previous snapshot so entities hold their last known state.
type CoordinatorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	hubspaceActor *actor.PID
	config        *config.Config
	eventStream   *eventstream.EventStream
	snapshot      hubspace.Snapshot
	lastFetchOK   bool
	pendingPush   pendingPush

	logger *zap.Logger
}

type coordinatorTick struct {
}

type pendingPush struct {
	metadeviceID string
	replyTo      *actor.PID
	respond      func(err error) any
}

func NewCoordinatorActor(config *config.Config, hubspaceActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *CoordinatorActor {
	act := &CoordinatorActor{
		config:        config,
		hubspaceActor: hubspaceActor,
		behavior:      actor.NewBehavior(),
		stash:         &Stash{},
		logger:        ActorLogger(domain.ACTOR_ID_COORDINATOR, logger),
		eventStream:   eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *CoordinatorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *CoordinatorActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("coordinator@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)

		state.requestFetch(ctx)
		state.behavior.Become(state.WaitingFirstFetchReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("coordinator@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// WaitingFirstFetchReceive holds every request until the initial snapshot
// attempt resolves, so early GetSnapshotRequests never see a nil map for
// a reachable account.
func (state *CoordinatorActor) WaitingFirstFetchReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.FetchDevicesResponse:
		state.applyFetchResponse(msg)
		state.scheduleTick(ctx)
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("coordinator@firstFetch: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CoordinatorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("coordinator@default: ActorHealthRequest")
		healthState := "idle"
		if !state.lastFetchOK {
			healthState = "degraded"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_COORDINATOR,
			Healthy: state.lastFetchOK,
			State:   healthState,
		})
	case domain.GetSnapshotRequest:
		state.logger.Debug("coordinator@default: GetSnapshotRequest")
		ctx.Respond(domain.GetSnapshotResponse{
			Snapshot: state.snapshot,
		})
	case coordinatorTick:
		state.logger.Debug("coordinator@default tick")
		state.requestFetch(ctx)
		state.scheduleTick(ctx)
		state.behavior.BecomeStacked(state.WaitingFetchReceive)
	case domain.RefreshRequest:
		state.logger.Debug("coordinator@default: RefreshRequest")
		state.requestFetch(ctx)
		state.behavior.BecomeStacked(state.WaitingFetchReceive)
	case domain.LightCommandRequest:
		state.logger.Debug("coordinator@default: LightCommandRequest", zap.String("metadevice", msg.MetadeviceID))
		state.handleLightCommand(ctx, msg)
	case domain.FanCommandRequest:
		state.logger.Debug("coordinator@default: FanCommandRequest", zap.String("metadevice", msg.MetadeviceID))
		state.handleFanCommand(ctx, msg)
	case domain.SwitchCommandRequest:
		state.logger.Debug("coordinator@default: SwitchCommandRequest", zap.String("metadevice", msg.MetadeviceID))
		state.handleSwitchCommand(ctx, msg)
	default:
		state.logger.Debug("coordinator@default: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CoordinatorActor) WaitingFetchReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.FetchDevicesResponse:
		state.applyFetchResponse(msg)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("coordinator@fetch: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CoordinatorActor) WaitingPushReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PushStateResponse:
		pending := state.pendingPush
		state.pendingPush = pendingPush{}
		if msg.HasResponseError() {
			// local mutation stays until the next poll reconciles it
			state.logger.Error("coordinator@push PushStateResponse error",
				zap.String("metadevice", pending.metadeviceID), zap.Error(msg.GetResponseError()))
		} else if device, ok := state.snapshot[pending.metadeviceID]; ok {
			hubspace.NewDeviceState(device, state.logger).ReplaceFromDoc(msg.Doc)
		}
		if device, ok := state.snapshot[pending.metadeviceID]; ok {
			for _, ev := range events.DeviceUpdateEvents(device, state.logger) {
				state.eventStream.Publish(ev)
			}
		}
		if pending.replyTo != nil && pending.respond != nil {
			ctx.Send(pending.replyTo, pending.respond(msg.GetResponseError()))
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("coordinator@push: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CoordinatorActor) applyFetchResponse(msg domain.FetchDevicesResponse) {
	if msg.HasResponseError() {
		state.logger.Error("coordinator fetch error", zap.Error(msg.GetResponseError()))
		state.lastFetchOK = false
		return
	}
	state.snapshot = msg.Snapshot
	state.lastFetchOK = true
	for _, ev := range events.SnapshotUpdateEvents(state.snapshot, state.logger) {
		state.eventStream.Publish(ev)
	}
}

func (state *CoordinatorActor) requestFetch(ctx actor.Context) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.hubspaceActor, domain.FetchDevicesRequest{}, state.fetchTimeout()), func(err error) any {
		return domain.FetchDevicesResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *CoordinatorActor) scheduleTick(ctx actor.Context) {
	if state.config.Hubspace.PollIntervalMillis > 0 {
		state.scheduler.RequestOnce(time.Duration(state.config.Hubspace.PollIntervalMillis)*time.Millisecond, ctx.Self(), coordinatorTick{})
	}
}

func (state *CoordinatorActor) handleLightCommand(ctx actor.Context, msg domain.LightCommandRequest) {
	respond := func(err error) any {
		return domain.LightCommandResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		}
	}
	ds, ok := state.deviceState(ctx, msg, respond)
	if !ok {
		return
	}
	if msg.Power != nil {
		state.setValue(ds, hubspace.FunctionKey{Class: hubspace.FunctionClassPower}, *msg.Power)
	}
	if msg.Brightness != nil {
		state.setValue(ds, hubspace.FunctionKey{Class: hubspace.FunctionClassBrightness}, *msg.Brightness)
	}
	if msg.ColorTempMireds != nil && *msg.ColorTempMireds > 0 {
		target := int64(1_000_000 / *msg.ColorTempMireds)
		if kelvin, ok := nearestColorTemp(ds, target); ok {
			state.setValue(ds, hubspace.FunctionKey{Class: hubspace.FunctionClassColorTemperature}, kelvin)
		}
	}
	state.pushDevice(ctx, ds, msg.MetadeviceID, ForRequest(msg).ReplyTo(ctx), respond)
}

func (state *CoordinatorActor) handleFanCommand(ctx actor.Context, msg domain.FanCommandRequest) {
	respond := func(err error) any {
		return domain.FanCommandResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		}
	}
	ds, ok := state.deviceState(ctx, msg, respond)
	if !ok {
		return
	}
	if msg.Power != nil {
		state.setValue(ds, hubspace.FunctionKey{Class: hubspace.FunctionClassPower}, *msg.Power)
	}
	if msg.Percentage != nil {
		// zero percent means off, any other value picks a speed and
		// implies power on
		if *msg.Percentage <= 0 {
			state.setValue(ds, hubspace.FunctionKey{Class: hubspace.FunctionClassPower}, false)
		} else {
			label, err := hubspace.PercentageToOrderedListItem(events.FanSpeedLabels(ds), *msg.Percentage)
			if err != nil {
				state.logger.Warn("could not map percentage to fan speed",
					zap.String("metadevice", msg.MetadeviceID), zap.Int("percentage", *msg.Percentage), zap.Error(err))
			} else {
				ds.SetRawValue(hubspace.FunctionKey{Class: hubspace.FunctionClassFanSpeed}, label)
				state.setValue(ds, hubspace.FunctionKey{Class: hubspace.FunctionClassPower}, true)
			}
		}
	}
	if msg.PresetMode != nil {
		ds.SetPreset(*msg.PresetMode)
	}
	if msg.Direction != nil {
		ds.SetRawValue(hubspace.FunctionKey{Class: hubspace.FunctionClassFanReverse}, *msg.Direction)
	}
	state.pushDevice(ctx, ds, msg.MetadeviceID, ForRequest(msg).ReplyTo(ctx), respond)
}

func (state *CoordinatorActor) handleSwitchCommand(ctx actor.Context, msg domain.SwitchCommandRequest) {
	respond := func(err error) any {
		return domain.SwitchCommandResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		}
	}
	ds, ok := state.deviceState(ctx, msg, respond)
	if !ok {
		return
	}
	ref := hubspace.SwitchRef{MetadeviceID: msg.MetadeviceID, OutletIndex: msg.OutletIndex}
	state.setValue(ds, ref.ToggleKey(), msg.Power)
	state.pushDevice(ctx, ds, msg.MetadeviceID, ForRequest(msg).ReplyTo(ctx), respond)
}

func (state *CoordinatorActor) deviceState(ctx actor.Context, msg domain.EntityCommandRequest, respond func(err error) any) (*hubspace.DeviceState, bool) {
	metadeviceID := msg.TargetMetadeviceID()
	device, ok := state.snapshot[metadeviceID]
	if !ok {
		err := fmt.Errorf("unknown metadevice %q", metadeviceID)
		state.logger.Warn("command for unknown metadevice", zap.String("metadevice", metadeviceID))
		if replyTo := ForRequest(msg).ReplyTo(ctx); replyTo != nil {
			ctx.Send(replyTo, respond(err))
		}
		return nil, false
	}
	return hubspace.NewDeviceState(device, state.logger), true
}

func (state *CoordinatorActor) setValue(ds *hubspace.DeviceState, key hubspace.FunctionKey, value any) {
	if err := ds.SetValue(key, value); err != nil {
		state.logger.Warn("could not apply value", zap.String("key", key.String()), zap.Error(err))
	}
}

func (state *CoordinatorActor) pushDevice(ctx actor.Context, ds *hubspace.DeviceState, metadeviceID string,
	replyTo *actor.PID, respond func(err error) any) {
	values := ds.PushValues()
	if len(values) == 0 {
		if replyTo != nil {
			ctx.Send(replyTo, respond(nil))
		}
		return
	}
	state.pendingPush = pendingPush{
		metadeviceID: metadeviceID,
		replyTo:      replyTo,
		respond:      respond,
	}
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.hubspaceActor, domain.PushStateRequest{
		MetadeviceID: metadeviceID,
		Values:       values,
	}, state.fetchTimeout()), func(err error) any {
		return domain.PushStateResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			MetadeviceID: metadeviceID,
		}
	})
	state.behavior.BecomeStacked(state.WaitingPushReceive)
}

// fetchTimeout leaves the hubspace actor room to time out on its own and
// report a proper error before the request future gives up.
func (state *CoordinatorActor) fetchTimeout() time.Duration {
	return time.Duration(state.config.Hubspace.FetchTimeoutMillis)*time.Millisecond + 2*time.Second
}

// nearestColorTemp snaps a kelvin target to the closest label the device
// supports.
func nearestColorTemp(ds *hubspace.DeviceState, target int64) (int64, bool) {
	labels := ds.FunctionValues(hubspace.FunctionKey{Class: hubspace.FunctionClassColorTemperature})
	codec, _ := hubspace.CodecFor(hubspace.FunctionClassColorTemperature)
	var best int64
	found := false
	for _, label := range labels {
		value, err := codec.Decode(label)
		if err != nil {
			continue
		}
		kelvin := value.(int64)
		if !found || abs64(kelvin-target) < abs64(best-target) {
			best = kelvin
			found = true
		}
	}
	return best, found
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
