package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	upsertSnapshotQuery = `
      insert into session_snapshot (id, data, updated_at)
      values (1, ?, ?)
      on conflict(id) do update
         set data = excluded.data,
             updated_at = excluded.updated_at;`

	selectSnapshotQuery = `select data from session_snapshot where id = 1;`
)

// SQLStore keeps the snapshot in the single row of session_snapshot. The
// same queries serve SQLite and PostgreSQL; bind variables are rebound
// for the driver.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Save(ctx context.Context, data []byte) error {
	query := s.db.Rebind(upsertSnapshotQuery)
	if _, err := s.db.ExecContext(ctx, query, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// Load returns nil data when no snapshot row exists.
func (s *SQLStore) Load(ctx context.Context) ([]byte, error) {
	var data string
	err := s.db.GetContext(ctx, &data, selectSnapshotQuery)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select snapshot: %w", err)
	}
	return []byte(data), nil
}

// UpdatedAt reports when the snapshot row was last written.
func (s *SQLStore) UpdatedAt(ctx context.Context) (time.Time, error) {
	var updatedAt time.Time
	err := s.db.GetContext(ctx, &updatedAt, `select updated_at from session_snapshot where id = 1;`)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to select snapshot time: %w", err)
	}
	return updatedAt, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
