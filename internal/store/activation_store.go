package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/loom/internal/domain"
)

// ActivationStore persists activation records in SQLite.
type ActivationStore struct {
	db *DB
}

// NewActivationStore creates an activation store using the given database.
func NewActivationStore(db *DB) *ActivationStore {
	return &ActivationStore{db: db}
}

// ActivationFilter narrows List results. Zero values mean "no filter".
type ActivationFilter struct {
	AgentID   string
	SessionID string
	Status    domain.ActivationStatus
	Limit     int
}

// Create inserts a new activation record.
func (s *ActivationStore) Create(ctx context.Context, rec domain.ActivationRecord) error {
	input, err := marshalNullable(rec.Input)
	if err != nil {
		return fmt.Errorf("encoding input: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO activations
		 (id, agent_id, agent_version, session_id, status, input_data, instance_mode, instance_alias, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentID, rec.AgentVersion, rec.SessionID, string(rec.Status),
		input, string(rec.InstanceMode), rec.InstanceAlias,
		createdAt.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("creating activation %s: %w", rec.ID, err)
	}
	return nil
}

// Update writes a record's mutable fields. Terminal records are
// immutable: updating one returns domain.ErrActivationTerminal.
func (s *ActivationStore) Update(ctx context.Context, rec domain.ActivationRecord) error {
	output, err := marshalNullable(rec.Output)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	errorKind, errorMessage := "", ""
	if rec.Error != nil {
		errorKind = rec.Error.Kind
		errorMessage = rec.Error.Message
	}

	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE activations
		 SET status = ?, output_data = ?, error_kind = ?, error_message = ?,
		     instance_mode = ?, instance_alias = ?, started_at = ?, completed_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		string(rec.Status), output, errorKind, errorMessage,
		string(rec.InstanceMode), rec.InstanceAlias,
		formatNullableTime(rec.StartedAt), formatNullableTime(rec.CompletedAt),
		rec.ID, string(domain.StatusSucceeded), string(domain.StatusFailed),
	)
	if err != nil {
		return fmt.Errorf("updating activation %s: %w", rec.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the record doesn't exist or it already reached a
		// terminal status.
		if _, err := s.Get(ctx, rec.ID); err != nil {
			return err
		}
		return domain.ErrActivationTerminal
	}
	return nil
}

// Get returns an activation record by ID.
func (s *ActivationStore) Get(ctx context.Context, id string) (domain.ActivationRecord, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT id, agent_id, agent_version, session_id, status, input_data, output_data,
		        error_kind, error_message, instance_mode, instance_alias,
		        created_at, started_at, completed_at
		 FROM activations WHERE id = ?`, id)

	rec, err := scanActivation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ActivationRecord{}, domain.ErrActivationNotFound
	}
	return rec, err
}

// List returns activation records matching the filter, newest first.
func (s *ActivationStore) List(ctx context.Context, f ActivationFilter) ([]domain.ActivationRecord, error) {
	query := `SELECT id, agent_id, agent_version, session_id, status, input_data, output_data,
	                 error_kind, error_message, instance_mode, instance_alias,
	                 created_at, started_at, completed_at
	          FROM activations WHERE 1=1`
	var args []any

	if f.AgentID != "" {
		query += " AND agent_id = ?"
		args = append(args, f.AgentID)
	}
	if f.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activations: %w", err)
	}
	defer rows.Close()

	var recs []domain.ActivationRecord
	for rows.Next() {
		rec, err := scanActivation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivation(row rowScanner) (domain.ActivationRecord, error) {
	var rec domain.ActivationRecord
	var status, instanceMode string
	var input, output sql.NullString
	var errorKind, errorMessage string
	var createdAt, startedAt, completedAt string

	err := row.Scan(
		&rec.ID, &rec.AgentID, &rec.AgentVersion, &rec.SessionID, &status,
		&input, &output, &errorKind, &errorMessage,
		&instanceMode, &rec.InstanceAlias,
		&createdAt, &startedAt, &completedAt,
	)
	if err != nil {
		return domain.ActivationRecord{}, err
	}

	rec.Status = domain.ActivationStatus(status)
	rec.InstanceMode = domain.InstanceMode(instanceMode)
	if errorKind != "" || errorMessage != "" {
		rec.Error = &domain.ErrorInfo{Kind: errorKind, Message: errorMessage}
	}
	if input.Valid && input.String != "" {
		_ = json.Unmarshal([]byte(input.String), &rec.Input)
	}
	if output.Valid && output.String != "" {
		_ = json.Unmarshal([]byte(output.String), &rec.Output)
	}
	rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	rec.StartedAt = parseNullableTime(startedAt)
	rec.CompletedAt = parseNullableTime(completedAt)
	return rec, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	if m, ok := v.(map[string]any); ok && m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func formatNullableTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateTime)
}

func parseNullableTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.DateTime, s)
	return t
}
