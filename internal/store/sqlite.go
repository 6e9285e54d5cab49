package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
create table if not exists variables (
	name text primary key,
	value text not null,
	updated_at integer not null
);

create table if not exists secrets (
	name text primary key,
	value text not null,
	updated_at integer not null
);
`

// SQLite is a Store kept in a local sqlite file, used for dry runs outside of CI.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	_, err = db.Exec(sqliteSchema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite store schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) GetVariable(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "select value from variables where name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrVariableNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get variable %s: %w", name, err)
	}
	return value, nil
}

func (s *SQLite) SetVariable(ctx context.Context, name, value string) error {
	return s.upsert(ctx, "variables", name, value)
}

func (s *SQLite) PutSecret(ctx context.Context, name, value string) error {
	return s.upsert(ctx, "secrets", name, value)
}

func (s *SQLite) upsert(ctx context.Context, table, name, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		fmt.Sprintf(`insert into %s (name, value, updated_at) values (?, ?, ?)
		on conflict (name) do update set value = excluded.value, updated_at = excluded.updated_at`, table),
		name, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("write %s %s: %w", table, name, err)
	}
	return nil
}
