package config

// Config is the root configuration for Loom.
type Config struct {
	Server     ServerConfig     `yaml:"server,omitempty"`
	Activation ActivationConfig `yaml:"activation,omitempty"`
	Store      StoreConfig      `yaml:"store,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Hooks      HooksConfig      `yaml:"hooks,omitempty"`
}

// ServerConfig controls the local activation server (HTTP + WebSocket).
type ServerConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string     `yaml:"customBindHost,omitempty"`
	Auth           ServerAuth `yaml:"auth,omitempty"`
	TLS            ServerTLS  `yaml:"tls,omitempty"`
	AllowedOrigins []string   `yaml:"allowedOrigins,omitempty"`
}

// ServerAuth configures server authentication.
type ServerAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// ServerTLS configures TLS for the activation server.
type ServerTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// ActivationConfig controls activation dispatch behavior.
type ActivationConfig struct {
	DispatchTimeoutSec int `yaml:"dispatchTimeoutSec,omitempty"` // server dispatch deadline
	WatchIntervalMs    int `yaml:"watchIntervalMs,omitempty"`    // --watch polling interval
	MaxParallel        int `yaml:"maxParallel,omitempty"`        // activate-multi parallel cap
}

// StoreConfig selects the activation/provider store backend.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // "sqlite" | "memory"
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
}

// HooksConfig maps lifecycle events to shell-command hooks.
type HooksConfig struct {
	ActivationQueued    []HookEntry `yaml:"activationQueued,omitempty"`
	ActivationCompleted []HookEntry `yaml:"activationCompleted,omitempty"`
	ServerStart         []HookEntry `yaml:"serverStart,omitempty"`
	ServerStop          []HookEntry `yaml:"serverStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}
