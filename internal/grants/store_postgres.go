package grants

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"custodia/pkg/platform/sentinel"
)

// PostgresStore persists grants in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE grants (
//	    key        TEXT PRIMARY KEY,
//	    grant_type TEXT NOT NULL,
//	    client_id  TEXT NOT NULL,
//	    subject_id TEXT NOT NULL DEFAULT '',
//	    data       JSONB NOT NULL DEFAULT '{}',
//	    created_at TIMESTAMPTZ NOT NULL,
//	    expires_at TIMESTAMPTZ
//	);
//	CREATE INDEX grants_client_id_idx ON grants (client_id);
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed grant store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Put(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("serialize grant data: %w", err)
	}
	query := `
		INSERT INTO grants (key, grant_type, client_id, subject_id, data, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE SET
			grant_type = EXCLUDED.grant_type,
			client_id  = EXCLUDED.client_id,
			subject_id = EXCLUDED.subject_id,
			data       = EXCLUDED.data,
			expires_at = EXCLUDED.expires_at
	`
	_, err = s.db.ExecContext(ctx, query,
		record.Key, record.Type, record.ClientID, record.SubjectID,
		data, record.CreatedAt, nullableTime(record.ExpiresAt))
	if err != nil {
		return fmt.Errorf("store grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("serialize grant data: %w", err)
	}
	// An expired row under the same key does not block creation.
	query := `
		INSERT INTO grants (key, grant_type, client_id, subject_id, data, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE SET
			grant_type = EXCLUDED.grant_type,
			client_id  = EXCLUDED.client_id,
			subject_id = EXCLUDED.subject_id,
			data       = EXCLUDED.data,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE grants.expires_at IS NOT NULL AND grants.expires_at <= $8
	`
	res, err := s.db.ExecContext(ctx, query,
		record.Key, record.Type, record.ClientID, record.SubjectID,
		data, record.CreatedAt, nullableTime(record.ExpiresAt), s.clock())
	if err != nil {
		return fmt.Errorf("create grant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create grant: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("grant key %q occupied: %w", record.Key, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Record, error) {
	query := `
		SELECT key, grant_type, client_id, subject_id, data, created_at, expires_at
		FROM grants
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, key, s.clock()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("grant not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch grant: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM grants WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM grants WHERE key = ANY($1)`, pq.Array(keys)); err != nil {
		return fmt.Errorf("remove grants: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAllByClientID(ctx context.Context, clientID string) ([]*Record, error) {
	query := `
		SELECT key, grant_type, client_id, subject_id, data, created_at, expires_at
		FROM grants
		WHERE client_id = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, clientID, s.clock())
	if err != nil {
		return nil, fmt.Errorf("list client grants: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list client grants: %w", err)
	}
	return out, nil
}

// DeleteExpired garbage-collects rows past their expiry. Run periodically;
// correctness does not depend on it because reads filter expiry.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM grants WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.clock())
	if err != nil {
		return 0, fmt.Errorf("delete expired grants: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var record Record
	var data []byte
	var expiresAt sql.NullTime
	if err := row.Scan(&record.Key, &record.Type, &record.ClientID, &record.SubjectID,
		&data, &record.CreatedAt, &expiresAt); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		record.ExpiresAt = expiresAt.Time
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &record.Data); err != nil {
			return nil, fmt.Errorf("deserialize grant data: %w", err)
		}
	}
	return &record, nil
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
