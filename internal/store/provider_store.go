package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/loom/internal/domain"
)

// ProviderStore persists provider configurations in SQLite. It
// enforces the single-default invariant transactionally: setting a
// provider as default clears the previous default for the same type in
// the same transaction.
type ProviderStore struct {
	db *DB
}

// NewProviderStore creates a provider store using the given database.
func NewProviderStore(db *DB) *ProviderStore {
	return &ProviderStore{db: db}
}

// Upsert inserts or updates a provider, keyed by (type, name). An
// empty ID gets a fresh one. Returns the stored config.
func (s *ProviderStore) Upsert(ctx context.Context, cfg domain.ProviderConfig) (domain.ProviderConfig, error) {
	if cfg.Type == "" || cfg.Name == "" {
		return domain.ProviderConfig{}, fmt.Errorf("provider type and name are required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}

	settings, err := marshalNullable(settingsOrNil(cfg.Settings))
	if err != nil {
		return domain.ProviderConfig{}, fmt.Errorf("encoding settings: %w", err)
	}

	now := time.Now()
	cfg.UpdatedAt = now

	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return domain.ProviderConfig{}, err
	}
	defer tx.Rollback()

	if cfg.Default {
		if _, err := tx.ExecContext(ctx,
			`UPDATE providers SET is_default = 0, updated_at = ? WHERE type = ? AND is_default = 1`,
			now.Format(time.DateTime), cfg.Type,
		); err != nil {
			return domain.ProviderConfig{}, fmt.Errorf("clearing default for %s: %w", cfg.Type, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE providers
		 SET is_default = ?, endpoint = ?, model = ?, api_key = ?, settings = ?, updated_at = ?
		 WHERE type = ? AND name = ?`,
		boolToInt(cfg.Default), cfg.Endpoint, cfg.Model, cfg.APIKey, settings,
		now.Format(time.DateTime), cfg.Type, cfg.Name,
	)
	if err != nil {
		return domain.ProviderConfig{}, fmt.Errorf("updating provider %s/%s: %w", cfg.Type, cfg.Name, err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		cfg.CreatedAt = now
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO providers (id, type, name, is_default, endpoint, model, api_key, settings, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cfg.ID, cfg.Type, cfg.Name, boolToInt(cfg.Default),
			cfg.Endpoint, cfg.Model, cfg.APIKey, settings,
			now.Format(time.DateTime), now.Format(time.DateTime),
		); err != nil {
			return domain.ProviderConfig{}, fmt.Errorf("inserting provider %s/%s: %w", cfg.Type, cfg.Name, err)
		}
	} else {
		// Keep the existing row's ID
		var existingID string
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM providers WHERE type = ? AND name = ?`, cfg.Type, cfg.Name,
		).Scan(&existingID); err == nil {
			cfg.ID = existingID
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.ProviderConfig{}, err
	}
	return cfg, nil
}

// Lookup returns the provider with the given type and name.
func (s *ProviderStore) Lookup(ctx context.Context, providerType, name string) (domain.ProviderConfig, error) {
	row := s.db.sql.QueryRowContext(ctx,
		providerSelect+` WHERE type = ? AND name = ?`, providerType, name)
	return scanProvider(row)
}

// DefaultFor returns the default provider for a service type.
func (s *ProviderStore) DefaultFor(ctx context.Context, providerType string) (domain.ProviderConfig, error) {
	row := s.db.sql.QueryRowContext(ctx,
		providerSelect+` WHERE type = ? AND is_default = 1`, providerType)
	return scanProvider(row)
}

// List returns all providers of the given type, or all providers when
// providerType is empty.
func (s *ProviderStore) List(ctx context.Context, providerType string) ([]domain.ProviderConfig, error) {
	query := providerSelect
	var args []any
	if providerType != "" {
		query += ` WHERE type = ?`
		args = append(args, providerType)
	}
	query += ` ORDER BY type, name`

	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	defer rows.Close()

	var configs []domain.ProviderConfig
	for rows.Next() {
		cfg, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// Delete removes a provider by type and name.
func (s *ProviderStore) Delete(ctx context.Context, providerType, name string) error {
	res, err := s.db.sql.ExecContext(ctx,
		`DELETE FROM providers WHERE type = ? AND name = ?`, providerType, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProviderNotFound
	}
	return nil
}

const providerSelect = `SELECT id, type, name, is_default, endpoint, model, api_key, settings, created_at, updated_at FROM providers`

func scanProvider(row rowScanner) (domain.ProviderConfig, error) {
	var cfg domain.ProviderConfig
	var isDefault int
	var settings sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&cfg.ID, &cfg.Type, &cfg.Name, &isDefault,
		&cfg.Endpoint, &cfg.Model, &cfg.APIKey, &settings,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProviderConfig{}, domain.ErrProviderNotFound
	}
	if err != nil {
		return domain.ProviderConfig{}, err
	}

	cfg.Default = isDefault == 1
	if settings.Valid && settings.String != "" {
		_ = json.Unmarshal([]byte(settings.String), &cfg.Settings)
	}
	cfg.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	cfg.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return cfg, nil
}

func settingsOrNil(m map[string]string) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
