// Package sqlite provides a file-backed secret store. Values are sealed with
// cryptox before they touch disk, so the database file alone is not enough to
// recover tokens.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wrenlabs/authkit/pkg/cryptox"
	"github.com/wrenlabs/authkit/pkg/secrets"

	_ "modernc.org/sqlite"
)

type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
}

// NewStore opens (or creates) the secret database at dsn. Callers should run
// ApplyMigrations before first use.
func NewStore(dsn string, sealer *cryptox.Sealer) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Serialize writers; the secret store is small and contention-free
	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, sealer: sealer}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM secret_values WHERE key = ?`, key,
	).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", secrets.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	plaintext, err := s.sealer.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("unseal %q: %w", key, err)
	}
	return string(plaintext), nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	sealed, err := s.sealer.Seal([]byte(value))
	if err != nil {
		return fmt.Errorf("seal %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO secret_values (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, sealed,
	)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM secret_values WHERE key = ?`, key)
	return err
}

// SetAll writes a group of values inside a single transaction so a reader
// never observes a partially-updated credential set.
func (s *Store) SetAll(ctx context.Context, values map[string]string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			sealed, err := s.sealer.Seal([]byte(value))
			if err != nil {
				return fmt.Errorf("seal %q: %w", key, err)
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO secret_values (key, value, updated_at)
				VALUES (?, ?, CURRENT_TIMESTAMP)
				ON CONFLICT (key) DO UPDATE SET
					value = excluded.value,
					updated_at = excluded.updated_at`,
				key, sealed,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAll removes a group of keys inside a single transaction.
func (s *Store) DeleteAll(ctx context.Context, keys ...string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM secret_values WHERE key = ?`, key,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}
