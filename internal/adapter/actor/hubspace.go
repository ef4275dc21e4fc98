package actor

import (
	"fmt"
	"time"

	"hubspace2mqtt/internal/core/domain"
	"hubspace2mqtt/internal/core/port"
	"hubspace2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

type HubspaceActor struct {
	behavior     actor.Behavior
	stash        *actorutil.Stash
	service      port.VendorService
	fetchTimeout time.Duration
	logger       *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewHubspaceActor(service port.VendorService, fetchTimeout time.Duration, logger *zap.Logger) *HubspaceActor {
	act := &HubspaceActor{
		service:      service,
		fetchTimeout: fetchTimeout,
		behavior:     actor.NewBehavior(),
		stash:        &actorutil.Stash{},
		logger:       actorutil.ActorLogger("hubspace", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HubspaceActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HubspaceActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hubspace@starting started")
		// auth failure is a boot failure, the supervisor backs off and retries
		if err := state.service.Authenticate(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("hubspace@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HubspaceActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("hubspace@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HUBSPACE,
			Healthy: true,
			State:   "idle",
		})
	case domain.FetchDevicesRequest:
		state.logger.Debug("hubspace@default: FetchDevicesRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.fetchDevices),
			mapTaskResult[domain.FetchDevicesResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.FetchDevicesResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.fetchTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingVendor)
	case domain.PushStateRequest:
		state.logger.Debug("hubspace@default: PushStateRequest", zap.String("metadevice", msg.MetadeviceID))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.PushStateResponse, error) {
			return state.pushState(msg)
		}),
			mapTaskResult[domain.PushStateResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.PushStateResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					MetadeviceID: msg.MetadeviceID,
				},
				replyTo: sender,
			}
		}).WithTimeout(state.fetchTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingVendor)
	default:
		state.logger.Debug("hubspace@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HubspaceActor) WaitingVendor(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("hubspace@WaitingVendor backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hubspace@WaitingVendor stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *HubspaceActor) fetchDevices() (*domain.FetchDevicesResponse, error) {
	snapshot, err := a.service.FetchDevices()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.FetchDevicesResponse{
		Snapshot: snapshot,
	}, nil
}

func (a *HubspaceActor) pushState(msg domain.PushStateRequest) (*domain.PushStateResponse, error) {
	doc, err := a.service.SetState(msg.MetadeviceID, msg.Values)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.PushStateResponse{
		MetadeviceID: msg.MetadeviceID,
		Doc:          doc,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
