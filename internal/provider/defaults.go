// Package provider implements the provider registry: configured
// service providers keyed by (type, name), with at most one default
// per type.
package provider

// KnownDefaults holds built-in endpoint and model defaults for common
// LLM provider names, used when `loom providers add` is called without
// explicit values.
var KnownDefaults = map[string]struct {
	Endpoint string
	Model    string
}{
	"openai": {
		Endpoint: "https://api.openai.com/v1",
		Model:    "gpt-3.5-turbo",
	},
	"anthropic": {
		Endpoint: "https://api.anthropic.com",
		Model:    "claude-3-sonnet-20240229",
	},
	"google": {
		Endpoint: "https://generativelanguage.googleapis.com",
		Model:    "gemini-pro",
	},
	"local": {
		Endpoint: "http://localhost:1234/v1",
		Model:    "local-model",
	},
	"mock": {
		Endpoint: "https://mock.api.com",
		Model:    "mock-model",
	},
}

// ApplyKnownDefaults fills empty Endpoint/Model fields from
// KnownDefaults when the provider name is recognized.
func ApplyKnownDefaults(name, endpoint, model string) (string, string) {
	d, ok := KnownDefaults[name]
	if !ok {
		return endpoint, model
	}
	if endpoint == "" {
		endpoint = d.Endpoint
	}
	if model == "" {
		model = d.Model
	}
	return endpoint, model
}
