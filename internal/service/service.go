// Package service implements the capability clients handed to agents
// at activation time: one client type per provider service type.
package service

import (
	"fmt"

	"github.com/soyeahso/loom/internal/domain"
)

// UnavailableError is returned when a configured provider exists but a
// usable client cannot be built from it.
type UnavailableError struct {
	Provider string
	Reason   string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %s", e.Provider, e.Reason)
}

// ErrorKind identifies this failure in activation error records.
func (e *UnavailableError) ErrorKind() string { return domain.ErrKindProviderUnavailable }

// APIError is returned when a provider API call fails.
type APIError struct {
	Provider string
	Code     int // HTTP status code, 0 when not applicable
	Message  string
}

func (e *APIError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
