package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DataStore persists per-agent application data rows. It backs the
// "data" service handle that agents receive at activation time.
type DataStore struct {
	db *DB
}

// NewDataStore creates a data store using the given database.
func NewDataStore(db *DB) *DataStore {
	return &DataStore{db: db}
}

// ErrDataNotFound is returned when a data row does not exist.
var ErrDataNotFound = errors.New("data row not found")

// Put writes a value under (agentID, collection, key), replacing any
// existing row.
func (s *DataStore) Put(ctx context.Context, agentID, collection, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}

	now := time.Now().Format(time.DateTime)
	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO app_data (agent_id, collection, key, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (agent_id, collection, key)
		 DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		agentID, collection, key, string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("storing data %s/%s/%s: %w", agentID, collection, key, err)
	}
	return nil
}

// Get reads a value into out, which must be a pointer.
func (s *DataStore) Get(ctx context.Context, agentID, collection, key string, out any) error {
	var raw string
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT value FROM app_data WHERE agent_id = ? AND collection = ? AND key = ?`,
		agentID, collection, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDataNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

// Query returns all keys and values in a collection.
func (s *DataStore) Query(ctx context.Context, agentID, collection string) (map[string]json.RawMessage, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT key, value FROM app_data WHERE agent_id = ? AND collection = ? ORDER BY key`,
		agentID, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("querying data %s/%s: %w", agentID, collection, err)
	}
	defer rows.Close()

	result := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = json.RawMessage(value)
	}
	return result, rows.Err()
}

// Delete removes a data row. Deleting a missing row is not an error.
func (s *DataStore) Delete(ctx context.Context, agentID, collection, key string) error {
	_, err := s.db.sql.ExecContext(ctx,
		`DELETE FROM app_data WHERE agent_id = ? AND collection = ? AND key = ?`,
		agentID, collection, key,
	)
	return err
}
