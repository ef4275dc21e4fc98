package actorutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"hubspace2mqtt/internal/core/domain"
	"hubspace2mqtt/internal/mqtt"
	"hubspace2mqtt/pkg/hubspace"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a parsed MQTT command to its typed
// entity command request.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	switch cmd.Command {
	case mqtt.COMMAND_LIGHT_SET:
		var payload mqtt.LightCommandPayload
		if err := json.Unmarshal([]byte(cmd.Payload), &payload); err != nil {
			return nil, fmt.Errorf("invalid light payload: %w", err)
		}
		request := domain.LightCommandRequest{
			EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
				MetadeviceID: cmd.DeviceId,
			},
			Brightness:      payload.Brightness,
			ColorTempMireds: payload.ColorTemp,
		}
		if payload.State != "" {
			on := payload.State == mqtt.MQTT_PAYLOAD_LIGHT_ON
			request.Power = &on
		}
		return request, nil
	case mqtt.COMMAND_FAN_POWER:
		on := cmd.Payload == mqtt.MQTT_PAYLOAD_ON
		return domain.FanCommandRequest{
			EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
				MetadeviceID: cmd.DeviceId,
			},
			Power: &on,
		}, nil
	case mqtt.COMMAND_FAN_PERCENTAGE:
		pct, err := strconv.Atoi(cmd.Payload)
		if err != nil || pct < 0 || pct > 100 {
			return nil, fmt.Errorf("invalid fan percentage %q", cmd.Payload)
		}
		return domain.FanCommandRequest{
			EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
				MetadeviceID: cmd.DeviceId,
			},
			Percentage: &pct,
		}, nil
	case mqtt.COMMAND_FAN_PRESET:
		preset := cmd.Payload
		return domain.FanCommandRequest{
			EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
				MetadeviceID: cmd.DeviceId,
			},
			PresetMode: &preset,
		}, nil
	case mqtt.COMMAND_FAN_DIRECTION:
		direction := cmd.Payload
		return domain.FanCommandRequest{
			EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
				MetadeviceID: cmd.DeviceId,
			},
			Direction: &direction,
		}, nil
	case mqtt.COMMAND_SWITCH_POWER:
		ref := hubspace.ParseSwitchUniqueID(cmd.DeviceId)
		return domain.SwitchCommandRequest{
			EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{
				MetadeviceID: ref.MetadeviceID,
			},
			OutletIndex: ref.OutletIndex,
			Power:       cmd.Payload == mqtt.MQTT_PAYLOAD_ON,
		}, nil
	}
	return nil, nil
}
