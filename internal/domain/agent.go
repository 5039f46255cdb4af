package domain

// AgentKind classifies how an agent artifact executes.
type AgentKind string

const (
	KindClassAgent    AgentKind = "class_agent"
	KindFunctionAgent AgentKind = "function_agent"
	KindPipeline      AgentKind = "pipeline"
	KindWorkflow      AgentKind = "workflow"
)

// Dependency is a single declared service dependency of an agent.
// Param is the agent's own parameter name; Service is the canonical
// service type it maps to (llm, oauth, storage, data).
type Dependency struct {
	Param    string `json:"param"`
	Service  string `json:"service"`
	Optional bool   `json:"optional,omitempty"`
}

// AgentDescriptor is the resolved description of an agent artifact:
// what kind it is and which services it needs before it can run.
type AgentDescriptor struct {
	AgentID      string       `json:"agentId"`
	Version      string       `json:"version,omitempty"`
	Kind         AgentKind    `json:"kind"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// Binding sources for a resolved dependency.
const (
	SourceExplicitConfig  = "explicit_config"
	SourceDefaultProvider = "default_provider"
	SourceUnavailable     = "unavailable"
)

// ServiceBinding is the outcome of resolving one Dependency: the
// provider that will satisfy it (if any) and a live service handle.
// Handle is nil when Source is unavailable.
type ServiceBinding struct {
	Param        string `json:"param"`
	Service      string `json:"service"`
	Source       string `json:"source"`
	ProviderID   string `json:"providerId,omitempty"`
	ProviderName string `json:"providerName,omitempty"`
	Handle       any    `json:"-"`
}

// Bound reports whether the binding carries a usable handle.
func (b ServiceBinding) Bound() bool {
	return b.Source != SourceUnavailable && b.Handle != nil
}
