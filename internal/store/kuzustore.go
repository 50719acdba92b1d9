//go:build cgo

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/userbridge/internal/user"
)

// KuzuStore implements Store on an embedded KuzuDB database. It requires CGO
// because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	mu   sync.Mutex // serializes use of conn
	db   *kuzu.Database
	conn *kuzu.Connection
	seq  int64
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path. KuzuDB creates the leaf directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(dbPath string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(dbPath, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	s := &KuzuStore{db: db, conn: conn}
	if err := s.initSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

const kuzuSchema = `CREATE NODE TABLE IF NOT EXISTS LocalUser(
	handle STRING,
	seq INT64,
	user_id STRING,
	name STRING,
	username STRING,
	email STRING,
	phone STRING,
	website STRING,
	address STRING,
	company STRING,
	additional_info STRING,
	PRIMARY KEY(handle)
)`

// initSchema creates the node table and resumes the insertion counter.
func (s *KuzuStore) initSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.exec(kuzuSchema, nil); err != nil {
		return fmt.Errorf("kuzu: init schema: %w", err)
	}
	rows, err := s.query("MATCH (u:LocalUser) RETURN max(u.seq)", nil)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		s.seq = toInt64(rows[0][0])
	}
	return nil
}

const kuzuReturnUser = `RETURN u.user_id, u.handle, u.name, u.username, u.email, u.phone, u.website,
	u.address, u.company, u.additional_info, u.seq`

// FindByID returns the earliest inserted record with the given user id.
func (s *KuzuStore) FindByID(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.query(
		"MATCH (u:LocalUser) WHERE u.user_id = $id "+kuzuReturnUser+" ORDER BY u.seq LIMIT 1",
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	u, err := rowToUser(rows[0])
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns every record in insertion order.
func (s *KuzuStore) List(_ context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.query("MATCH (u:LocalUser) "+kuzuReturnUser+" ORDER BY u.seq", nil)
	if err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		u, err := rowToUser(r)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// Count returns the number of LocalUser nodes.
func (s *KuzuStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.query("MATCH (u:LocalUser) RETURN count(u)", nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(toInt64(rows[0][0])), nil
}

// Upsert inserts or replaces u keyed by its handle; see Store.
func (s *KuzuStore) Upsert(_ context.Context, u *user.User) error {
	docs, err := encodeDocs(u)
	if err != nil {
		return fmt.Errorf("kuzu: upsert user %q: %w", u.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := u.Handle
	exists := false
	if handle == "" {
		handle = newHandle()
	} else {
		rows, err := s.query("MATCH (u:LocalUser {handle: $handle}) RETURN u.seq", map[string]any{"handle": handle})
		if err != nil {
			return err
		}
		exists = len(rows) > 0
	}

	params := map[string]any{
		"handle":   handle,
		"user_id":  u.ID,
		"name":     u.Name,
		"username": u.Username,
		"email":    u.Email,
		"phone":    u.Phone,
		"website":  u.Website,
		"address":  derefString(docs.Address),
		"company":  derefString(docs.Company),
		"info":     derefString(docs.AdditionalInfo),
	}

	if exists {
		err = s.exec(`MATCH (u:LocalUser {handle: $handle})
			SET u.user_id = $user_id, u.name = $name, u.username = $username,
			    u.email = $email, u.phone = $phone, u.website = $website,
			    u.address = $address, u.company = $company, u.additional_info = $info`,
			params,
		)
	} else {
		params["seq"] = s.seq + 1
		err = s.exec(`CREATE (u:LocalUser {
			handle: $handle, seq: $seq, user_id: $user_id, name: $name,
			username: $username, email: $email, phone: $phone, website: $website,
			address: $address, company: $company, additional_info: $info
		})`, params)
		if err == nil {
			s.seq++
		}
	}
	if err != nil {
		return fmt.Errorf("kuzu: upsert user %q: %w", u.ID, err)
	}
	u.Handle = handle
	return nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	_, err := s.query(cypher, params)
	return err
}

// query runs a Cypher statement and collects all result rows. Each row is a
// []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func rowToUser(r []any) (user.User, error) {
	u := user.User{
		ID:       toString(r[0]),
		Handle:   toString(r[1]),
		Name:     toString(r[2]),
		Username: toString(r[3]),
		Email:    toString(r[4]),
		Phone:    toString(r[5]),
		Website:  toString(r[6]),
	}
	address, company, info := toString(r[7]), toString(r[8]), toString(r[9])
	if err := decodeDocs(&u, docColumns{Address: &address, Company: &company, AdditionalInfo: &info}); err != nil {
		return user.User{}, fmt.Errorf("kuzu: %w", err)
	}
	return u, nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
