package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dusk-indust/userbridge/internal/store/migrations"
	"github.com/dusk-indust/userbridge/internal/user"
)

// Compile-time assertion: *SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists users in a SQLite file.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens the SQLite database at path and applies the embedded
// migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: ping db: %w", err)
	}
	if err := applySQLMigrations(ctx, sqlDB, migrations.SQLite, "sqlite"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: run migrations: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const sqliteUserColumns = `user_id, handle, name, username, email, phone, website, address, company, additional_info`

// FindByID returns the earliest inserted record with the given user id.
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*user.User, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE user_id = ? ORDER BY seq LIMIT 1`,
		id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: find user %q: %w", id, err)
	}
	return &u, nil
}

// List returns every record in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]user.User, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+sqliteUserColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list users: %w", err)
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list users: %w", err)
	}
	return users, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count users: %w", err)
	}
	return n, nil
}

// Upsert inserts or replaces u keyed by its handle; see Store.
func (s *SQLiteStore) Upsert(ctx context.Context, u *user.User) error {
	handle := u.Handle
	if handle == "" {
		handle = newHandle()
	}
	docs, err := encodeDocs(u)
	if err != nil {
		return fmt.Errorf("sqlite: upsert user %q: %w", u.ID, err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (`+sqliteUserColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(handle) DO UPDATE SET
		   user_id = excluded.user_id,
		   name = excluded.name,
		   username = excluded.username,
		   email = excluded.email,
		   phone = excluded.phone,
		   website = excluded.website,
		   address = excluded.address,
		   company = excluded.company,
		   additional_info = excluded.additional_info`,
		u.ID, handle, u.Name, u.Username, u.Email, u.Phone, u.Website,
		docs.Address, docs.Company, docs.AdditionalInfo,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert user %q: %w", u.ID, err)
	}
	u.Handle = handle
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var u user.User
	var docs docColumns
	if err := row.Scan(
		&u.ID, &u.Handle, &u.Name, &u.Username, &u.Email, &u.Phone, &u.Website,
		&docs.Address, &docs.Company, &docs.AdditionalInfo,
	); err != nil {
		return user.User{}, err
	}
	if err := decodeDocs(&u, docs); err != nil {
		return user.User{}, err
	}
	return u, nil
}
