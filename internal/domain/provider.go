// Package domain defines the core types shared across Loom packages.
package domain

import "time"

// Provider service types. A provider satisfies exactly one service type.
const (
	ServiceLLM     = "llm"
	ServiceOAuth   = "oauth"
	ServiceStorage = "storage"
	ServiceData    = "data"
)

// ServiceTypes lists all known provider service types.
var ServiceTypes = []string{ServiceLLM, ServiceOAuth, ServiceStorage, ServiceData}

// ProviderConfig describes a configured service provider.
// At most one provider per Type may have Default set.
type ProviderConfig struct {
	ID       string            `json:"id" yaml:"id"`
	Type     string            `json:"type" yaml:"type"`
	Name     string            `json:"name" yaml:"name"` // e.g. "anthropic", "openai", "gdrive"
	Default  bool              `json:"default" yaml:"default,omitempty"`
	Endpoint string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Model    string            `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey   string            `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	Settings map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"-"`
}
