package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore holds vane and user documents. Each vane's completion log is
// a jsonb array patched in place, so a single log append or removal is one
// atomic per-document UPDATE.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListVanes returns all non-draft vanes, newest first.
func (s *PostgresStore) ListVanes(ctx context.Context) ([]Vane, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, log, created_at
		FROM vanes
		WHERE NOT draft
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list vanes: %w", err)
	}
	defer rows.Close()

	items := make([]Vane, 0)
	for rows.Next() {
		item, err := scanVane(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vanes: %w", err)
	}
	return items, nil
}

// CreateVane inserts a vane with an empty log; the store assigns the id.
func (s *PostgresStore) CreateVane(ctx context.Context, title string) (Vane, error) {
	var item Vane
	var rawLog []byte
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO vanes (title)
		VALUES ($1)
		RETURNING id, title, log, created_at
	`, title).Scan(&item.ID, &item.Title, &rawLog, &item.CreatedAt)
	if err != nil {
		return Vane{}, fmt.Errorf("insert vane: %w", err)
	}
	if err := json.Unmarshal(rawLog, &item.Log); err != nil {
		return Vane{}, fmt.Errorf("decode vane log: %w", err)
	}
	return item, nil
}

// DeleteVane removes a vane permanently. Returns sql.ErrNoRows when the id
// does not exist.
func (s *PostgresStore) DeleteVane(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM vanes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete vane: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vane result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendLogEntry appends one entry to the vane's log in a single patch;
// a missing log initializes to the empty array. The entry is appended
// unconditionally, even when the day is already logged.
func (s *PostgresStore) AppendLogEntry(ctx context.Context, id string, entry LogEntry) (Vane, error) {
	encoded, err := json.Marshal([]LogEntry{entry})
	if err != nil {
		return Vane{}, fmt.Errorf("encode log entry: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE vanes
		SET log = COALESCE(log, '[]'::jsonb) || $2::jsonb
		WHERE id=$1
		RETURNING id, title, log, created_at
	`, id, encoded)
	item, err := scanVane(row)
	if err != nil {
		return Vane{}, err
	}
	return item, nil
}

// RemoveLogEntries drops every log entry for the given day in a single patch.
// Removing a day that was never logged succeeds and changes nothing; a
// missing vane returns an error.
func (s *PostgresStore) RemoveLogEntries(ctx context.Context, id, day string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE vanes
		SET log = COALESCE(
			(SELECT jsonb_agg(entry) FROM jsonb_array_elements(log) AS entry WHERE entry->>'day' <> $2),
			'[]'::jsonb
		)
		WHERE id=$1
	`, id, day)
	if err != nil {
		return fmt.Errorf("remove log entries: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove log entries result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateVanes stages one insert per vane and commits them as a single
// transaction. Either every vane is created or none are. Returns the created
// records with their store-assigned ids.
func (s *PostgresStore) CreateVanes(ctx context.Context, vanes []Vane) ([]Vane, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import tx: %w", err)
	}

	created := make([]Vane, 0, len(vanes))
	for _, item := range vanes {
		entries := item.Log
		if entries == nil {
			entries = []LogEntry{}
		}
		encoded, err := json.Marshal(entries)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("encode vane log: %w", err)
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO vanes (title, log)
			VALUES ($1, $2::jsonb)
			RETURNING id, title, log, created_at
		`, item.Title, encoded)
		inserted, err := scanVane(row)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert vane %q: %w", item.Title, err)
		}
		created = append(created, inserted)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import tx: %w", err)
	}
	return created, nil
}

// FindUserByGithubID returns sql.ErrNoRows when no user document exists for
// the provider id.
func (s *PostgresStore) FindUserByGithubID(ctx context.Context, githubID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, github_id, auth_token, created_at
		FROM users
		WHERE github_id=$1
	`, githubID).Scan(&user.UID, &user.GithubID, &user.AuthToken, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (uid, github_id, auth_token)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, user.UID, user.GithubID, user.AuthToken).Scan(&user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVane(row rowScanner) (Vane, error) {
	var item Vane
	var rawLog []byte
	if err := row.Scan(&item.ID, &item.Title, &rawLog, &item.CreatedAt); err != nil {
		return Vane{}, err
	}
	if err := json.Unmarshal(rawLog, &item.Log); err != nil {
		return Vane{}, fmt.Errorf("decode vane log: %w", err)
	}
	return item, nil
}
