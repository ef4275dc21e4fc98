package util

import (
	"hubspace2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Hubspace: config.HubspaceConfig{
			Username:           "user@example.com",
			Password:           "-",
			PollIntervalMillis: 5000,
			FetchTimeoutMillis: 2000,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "hubspace2mqtt",
		},
		Port: 8080,
	}
}
