package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dusk-indust/userbridge/internal/store/migrations"
	"github.com/dusk-indust/userbridge/internal/user"
)

// Compile-time assertion: *PostgresStore satisfies Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore persists users in Postgres through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, verifies the connection and applies the
// embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := applyPostgresMigrations(connectCtx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: run migrations: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgUserColumns = `user_id, handle, name, username, email, phone, website,
	address::text, company::text, additional_info::text`

// FindByID returns the earliest inserted record with the given user id.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*user.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgUserColumns+` FROM users WHERE user_id = $1 ORDER BY seq LIMIT 1`,
		id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: find user %q: %w", id, err)
	}
	return &u, nil
}

// List returns every record in insertion order.
func (s *PostgresStore) List(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgUserColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	return users, nil
}

// Count returns the number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count users: %w", err)
	}
	return int(n), nil
}

const pgUpsertSQL = `INSERT INTO users (user_id, handle, name, username, email, phone, website, address, company, additional_info)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::jsonb, $9::text::jsonb, $10::text::jsonb)
ON CONFLICT (handle) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	name = EXCLUDED.name,
	username = EXCLUDED.username,
	email = EXCLUDED.email,
	phone = EXCLUDED.phone,
	website = EXCLUDED.website,
	address = EXCLUDED.address,
	company = EXCLUDED.company,
	additional_info = EXCLUDED.additional_info`

// Upsert inserts or replaces u keyed by its handle; see Store.
func (s *PostgresStore) Upsert(ctx context.Context, u *user.User) error {
	handle := u.Handle
	if handle == "" {
		handle = newHandle()
	}
	docs, err := encodeDocs(u)
	if err != nil {
		return fmt.Errorf("postgres: upsert user %q: %w", u.ID, err)
	}

	if _, err := s.pool.Exec(ctx, pgUpsertSQL,
		u.ID, handle, u.Name, u.Username, u.Email, u.Phone, u.Website,
		docs.Address, docs.Company, docs.AdditionalInfo,
	); err != nil {
		return fmt.Errorf("postgres: upsert user %q: %w", u.ID, err)
	}
	u.Handle = handle
	return nil
}

// applyPostgresMigrations runs each embedded migration at most once.
func applyPostgresMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migs, err := loadMigrations(migrations.Postgres, "postgres")
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range migs {
		var found int
		err := pool.QueryRow(ctx, `SELECT 1 FROM `+migrationTable+` WHERE name = $1`, m.Name).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.Up); err != nil && !isAlreadyExistsError(err) {
				return fmt.Errorf("exec migration %s: %w", m.Name, err)
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO `+migrationTable+` (name, applied_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
				m.Name, time.Now().UTC().UnixMilli(),
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
	}
	return nil
}
