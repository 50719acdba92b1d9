// Package directory talks to the remote, read-only user directory over HTTP
// and turns its failures into typed errors.
package directory

import (
	"context"

	"github.com/dusk-indust/userbridge/internal/user"
)

// Client fetches users from the remote directory.
type Client interface {
	// FetchAll returns every user the directory holds.
	FetchAll(ctx context.Context) ([]user.User, error)

	// FetchByID returns a single user. A missing user surfaces as a
	// *StatusError with status 404.
	FetchByID(ctx context.Context, id string) (*user.User, error)
}
