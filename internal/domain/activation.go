package domain

import "time"

// ActivationStatus is the lifecycle state of an activation record.
type ActivationStatus string

const (
	StatusPending   ActivationStatus = "pending"
	StatusRunning   ActivationStatus = "running"
	StatusSucceeded ActivationStatus = "succeeded"
	StatusFailed    ActivationStatus = "failed"
)

// Terminal reports whether the status is absorbing: once reached, the
// record never changes again. Retries mint a new activation instead.
func (s ActivationStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Error kinds recorded on failed activations. Every failure an
// activation can produce maps to exactly one of these.
const (
	ErrKindDescriptor           = "descriptor_error"
	ErrKindUnresolvedDependency = "unresolved_dependency"
	ErrKindRouting              = "routing_error"
	ErrKindProviderUnavailable  = "provider_unavailable"
	ErrKindTransport            = "transport_error"
	ErrKindTimeout              = "timeout"
	ErrKindExecution            = "execution_error"
	ErrKindInternal             = "internal"
)

// ErrorInfo is the machine-readable failure recorded on a terminal
// failed activation.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ActivationRecord tracks one attempt to run an agent.
type ActivationRecord struct {
	ID            string           `json:"activationId"`
	AgentID       string           `json:"agentId"`
	AgentVersion  string           `json:"agentVersion,omitempty"`
	SessionID     string           `json:"sessionId,omitempty"`
	Status        ActivationStatus `json:"status"`
	Input         map[string]any   `json:"inputData,omitempty"`
	Output        any              `json:"outputData,omitempty"`
	Error         *ErrorInfo       `json:"error,omitempty"`
	InstanceMode  InstanceMode     `json:"instanceMode,omitempty"`
	InstanceAlias string           `json:"instanceAlias,omitempty"`

	CreatedAt   time.Time `json:"createdAt"`
	StartedAt   time.Time `json:"startedAt,omitempty"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

// Duration returns the wall time from start to completion, or zero if
// the record has not completed.
func (r ActivationRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
