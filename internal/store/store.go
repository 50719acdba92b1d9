// Package store persists locally owned users. Every backend satisfies Store;
// the memory backend is the default and the one tests run against.
package store

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/dusk-indust/userbridge/internal/user"
)

// Store is the local user store.
//
// Records are addressed two ways: by user id, which is what callers look up,
// and by storage handle (user.User.Handle), which identifies the stored record
// itself. User ids are not unique at this layer; FindByID returns the earliest
// inserted record carrying the id.
type Store interface {
	io.Closer

	// FindByID returns the record with the given user id, or nil if none.
	FindByID(ctx context.Context, id string) (*user.User, error)

	// List returns every record in insertion order.
	List(ctx context.Context) ([]user.User, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// Upsert stores u. An empty handle inserts a new record and assigns a
	// fresh handle to u. A non-empty handle replaces that record wholesale,
	// keeping its position; an unknown handle is inserted as given.
	Upsert(ctx context.Context, u *user.User) error
}

// newHandle returns a fresh storage handle.
func newHandle() string {
	return uuid.NewString()
}
