package store

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"

	"github.com/dusk-indust/userbridge/internal/user"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

const (
	memUsersTable  = "users"
	memHandleIndex = "id" // go-memdb requires the primary index to be named "id"
	memUserIDIndex = "user_id"
)

// memRecord is the stored form of a user. Records are never mutated after
// insertion; replacing one inserts a new record under the same handle.
type memRecord struct {
	Handle string
	UserID string
	Seq    uint64
	User   user.User
}

func memSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memUsersTable: {
				Name: memUsersTable,
				Indexes: map[string]*memdb.IndexSchema{
					memHandleIndex: {
						Name:    memHandleIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Handle"},
					},
					memUserIDIndex: {
						Name:         memUserIDIndex,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "UserID"},
					},
				},
			},
		},
	}
}

// MemStore implements Store on go-memdb. Reads run on immutable snapshots and
// writes are serialized by go-memdb's single-writer transactions.
type MemStore struct {
	db  *memdb.MemDB
	seq atomic.Uint64
}

// NewMemStore returns an empty MemStore ready for use.
func NewMemStore() (*MemStore, error) {
	db, err := memdb.NewMemDB(memSchema())
	if err != nil {
		return nil, fmt.Errorf("memstore: create database: %w", err)
	}
	return &MemStore{db: db}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// FindByID returns the earliest inserted record with the given user id.
func (m *MemStore) FindByID(ctx context.Context, id string) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := m.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memUsersTable, memUserIDIndex, id)
	if err != nil {
		return nil, fmt.Errorf("memstore: find user %q: %w", id, err)
	}

	var first *memRecord
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*memRecord)
		if first == nil || rec.Seq < first.Seq {
			first = rec
		}
	}
	if first == nil {
		return nil, nil
	}
	u := first.User.Clone()
	return &u, nil
}

// List returns every record in insertion order.
func (m *MemStore) List(ctx context.Context) ([]user.User, error) {
	records, err := m.records(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(records, func(a, b *memRecord) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})

	users := make([]user.User, 0, len(records))
	for _, rec := range records {
		users = append(users, rec.User.Clone())
	}
	return users, nil
}

// Count returns the number of stored records.
func (m *MemStore) Count(ctx context.Context) (int, error) {
	records, err := m.records(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Upsert inserts or replaces u; see Store.
func (m *MemStore) Upsert(ctx context.Context, u *user.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := m.db.Txn(true)
	defer txn.Abort()

	handle := u.Handle
	var seq uint64
	if handle != "" {
		existing, err := txn.First(memUsersTable, memHandleIndex, handle)
		if err != nil {
			return fmt.Errorf("memstore: look up handle %q: %w", handle, err)
		}
		if existing != nil {
			seq = existing.(*memRecord).Seq
		}
	} else {
		handle = newHandle()
	}
	if seq == 0 {
		seq = m.seq.Add(1)
	}

	stored := u.Clone()
	stored.Handle = handle
	rec := &memRecord{
		Handle: handle,
		UserID: stored.ID,
		Seq:    seq,
		User:   stored,
	}
	if err := txn.Insert(memUsersTable, rec); err != nil {
		return fmt.Errorf("memstore: upsert user %q: %w", stored.ID, err)
	}
	txn.Commit()

	u.Handle = handle
	return nil
}

// records returns every stored record in handle order.
func (m *MemStore) records(ctx context.Context) ([]*memRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := m.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memUsersTable, memHandleIndex)
	if err != nil {
		return nil, fmt.Errorf("memstore: list users: %w", err)
	}
	var out []*memRecord
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, obj.(*memRecord))
	}
	return out, nil
}
