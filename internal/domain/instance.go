package domain

// InstanceMode selects where an activation executes.
type InstanceMode string

const (
	ModeLocalDirect  InstanceMode = "local_direct"
	ModeLocalServer  InstanceMode = "local_server"
	ModeRemoteServer InstanceMode = "remote_server"
)

// InstanceTarget is a routing decision: the execution mode plus the
// endpoint and credential needed to reach it (empty for local_direct).
type InstanceTarget struct {
	Mode     InstanceMode `json:"mode"`
	Alias    string       `json:"alias,omitempty"`
	Endpoint string       `json:"endpoint,omitempty"`
	APIKey   string       `json:"apiKey,omitempty"`
}

// InstanceAccount is a saved remote instance configuration
// (~/.loom/instances/<name>.yaml).
type InstanceAccount struct {
	Name    string `json:"name" yaml:"name"`
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
	APIKey  string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	Default bool   `json:"default,omitempty" yaml:"-"`
}
