package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/loom/internal/domain"
)

var testAccounts = map[string]domain.InstanceAccount{
	"prod": {Name: "prod", BaseURL: "https://loom.example.com", APIKey: "key-prod"},
	"eu":   {Name: "eu", BaseURL: "https://eu.loom.example.com"},
}

func TestRoute_LocalDirect(t *testing.T) {
	for _, requested := range []string{"", "local"} {
		target, err := Route(requested, testAccounts, "http://127.0.0.1:17817")
		require.NoError(t, err, "requested %q", requested)
		assert.Equal(t, domain.ModeLocalDirect, target.Mode)
		assert.Empty(t, target.Endpoint)
		assert.Empty(t, target.APIKey)
	}
}

func TestRoute_LocalServer(t *testing.T) {
	target, err := Route("default", testAccounts, "http://127.0.0.1:17817")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeLocalServer, target.Mode)
	assert.Equal(t, "default", target.Alias)
	assert.Equal(t, "http://127.0.0.1:17817", target.Endpoint)
}

func TestRoute_RemoteServer(t *testing.T) {
	target, err := Route("prod", testAccounts, "http://127.0.0.1:17817")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeRemoteServer, target.Mode)
	assert.Equal(t, "prod", target.Alias)
	assert.Equal(t, "https://loom.example.com", target.Endpoint)
	assert.Equal(t, "key-prod", target.APIKey)
}

func TestRoute_UnknownAlias(t *testing.T) {
	_, err := Route("staging", testAccounts, "http://127.0.0.1:17817")
	var rerr *RoutingError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "staging", rerr.Requested)
	assert.Equal(t, domain.ErrKindRouting, rerr.ErrorKind())
}

func TestRoute_NoAccounts(t *testing.T) {
	_, err := Route("prod", nil, "http://127.0.0.1:17817")
	var rerr *RoutingError
	assert.ErrorAs(t, err, &rerr)

	target, err := Route("", nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeLocalDirect, target.Mode)
}
