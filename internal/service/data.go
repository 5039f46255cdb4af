package service

import (
	"context"
	"encoding/json"

	"github.com/soyeahso/loom/internal/store"
)

// Data is the platform-data service handle bound into agents: scoped
// key/value rows in the local database, isolated per agent.
type Data struct {
	provider string
	agentID  string
	store    *store.DataStore
}

// NewData creates a data handle scoped to one agent.
func NewData(providerName, agentID string, ds *store.DataStore) *Data {
	return &Data{provider: providerName, agentID: agentID, store: ds}
}

// Name returns the provider name.
func (d *Data) Name() string { return d.provider }

// Put writes a value under (collection, key).
func (d *Data) Put(ctx context.Context, collection, key string, value any) error {
	return d.store.Put(ctx, d.agentID, collection, key, value)
}

// Get reads a value into out, which must be a pointer.
func (d *Data) Get(ctx context.Context, collection, key string, out any) error {
	return d.store.Get(ctx, d.agentID, collection, key, out)
}

// Query returns all keys and values in a collection.
func (d *Data) Query(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	return d.store.Query(ctx, d.agentID, collection)
}

// Delete removes a row.
func (d *Data) Delete(ctx context.Context, collection, key string) error {
	return d.store.Delete(ctx, d.agentID, collection, key)
}
