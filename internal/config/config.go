package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultServerPort is the local activation server's default port.
const DefaultServerPort = 17817

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: DefaultServerPort,
			Bind: "loopback",
			Auth: ServerAuth{
				Mode: "token",
			},
		},
		Activation: ActivationConfig{
			DispatchTimeoutSec: 300,
			WatchIntervalMs:    2000,
			MaxParallel:        4,
		},
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
