// Package routing decides where an activation executes: in-process,
// through the local server, or on a configured remote instance.
package routing

import (
	"fmt"

	"github.com/soyeahso/loom/internal/domain"
)

// RoutingError reports a requested instance that matches no
// configuration. Routing never guesses; an unknown alias fails the
// activation before anything runs.
type RoutingError struct {
	Requested string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("unknown instance %q", e.Requested)
}

// ErrorKind identifies this failure in activation error records.
func (e *RoutingError) ErrorKind() string { return domain.ErrKindRouting }

// Route maps a requested instance selector to an execution target.
//
//	""        and "local" run in-process
//	"default" targets the local server
//	any other value must name a saved instance account
//
// Route is pure: it reads the account set it is given and touches no
// other state.
func Route(requested string, accounts map[string]domain.InstanceAccount, localEndpoint string) (domain.InstanceTarget, error) {
	switch requested {
	case "", "local":
		return domain.InstanceTarget{Mode: domain.ModeLocalDirect}, nil

	case "default":
		return domain.InstanceTarget{
			Mode:     domain.ModeLocalServer,
			Alias:    "default",
			Endpoint: localEndpoint,
		}, nil
	}

	acct, ok := accounts[requested]
	if !ok {
		return domain.InstanceTarget{}, &RoutingError{Requested: requested}
	}
	return domain.InstanceTarget{
		Mode:     domain.ModeRemoteServer,
		Alias:    acct.Name,
		Endpoint: acct.BaseURL,
		APIKey:   acct.APIKey,
	}, nil
}
