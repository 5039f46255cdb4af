package domain

import "errors"

// Sentinel errors shared by the stores and registries. Absence of a
// record is signalled with these, never with a failed activation.
var (
	ErrProviderNotFound   = errors.New("provider not found")
	ErrActivationNotFound = errors.New("activation not found")
	ErrActivationTerminal = errors.New("activation already terminal")
	ErrAgentNotFound      = errors.New("agent not found")
)
