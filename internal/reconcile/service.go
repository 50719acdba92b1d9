// Package reconcile presents the local store and the remote directory as one
// collection of users. Local records always shadow remote ones with the same id.
package reconcile

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/userbridge/internal/directory"
	"github.com/dusk-indust/userbridge/internal/user"
)

// LocalStore is the subset of the local store the service depends on.
type LocalStore interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, u *user.User) error
}

// Directory is the read-only remote source of users.
type Directory interface {
	FetchAll(ctx context.Context) ([]user.User, error)
	FetchByID(ctx context.Context, id string) (*user.User, error)
}

// Service implements list/get/create/update over both sources.
//
// Errors from the directory are returned exactly as the directory produced
// them so callers can map them with errors.As. Local store errors are wrapped
// with the failing operation.
type Service struct {
	local  LocalStore
	remote Directory
	logger *zap.Logger
}

// New returns a Service. A nil logger disables logging.
func New(local LocalStore, remote Directory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{local: local, remote: remote, logger: logger}
}

// ListAllUsers returns every local record followed by every remote record not
// shadowed by a local one. Both sources are read concurrently and the first
// failure aborts the call.
func (s *Service) ListAllUsers(ctx context.Context) ([]user.User, error) {
	var local, remote []user.User
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		local, err = s.local.List(gctx)
		if err != nil {
			return fmt.Errorf("reconcile: list local users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		remote, err = s.remote.FetchAll(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("list users failed", zap.Error(err))
		return nil, err
	}

	merged := user.Merge(local, remote)
	s.logger.Debug("listed users",
		zap.Int("local", len(local)),
		zap.Int("remote", len(remote)),
		zap.Int("merged", len(merged)),
	)
	return merged, nil
}

// GetUser returns the local record with id if there is one, without touching
// the directory. Otherwise it makes exactly one directory lookup and returns
// its result or error unchanged.
func (s *Service) GetUser(ctx context.Context, id string) (*user.User, error) {
	local, err := s.local.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reconcile: find local user %q: %w", id, err)
	}
	if local != nil {
		s.logger.Debug("user served from local store", zap.String("id", id))
		return local, nil
	}

	s.logger.Debug("user not local, asking directory", zap.String("id", id))
	return s.remote.FetchByID(ctx, id)
}

// CreateUser stores candidate as a new local record under the next local id
// and returns what was stored. Callers must reject candidates that already
// carry an id.
//
// The id is derived from the current local count, so two concurrent creates
// can read the same count and be assigned the same id.
func (s *Service) CreateUser(ctx context.Context, candidate user.User) (*user.User, error) {
	n, err := s.local.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: count local users: %w", err)
	}

	candidate.ID = user.NextLocalID(n)
	candidate.Handle = ""
	if err := s.local.Upsert(ctx, &candidate); err != nil {
		return nil, fmt.Errorf("reconcile: create user %q: %w", candidate.ID, err)
	}

	s.logger.Info("created user", zap.String("id", candidate.ID))
	return &candidate, nil
}

// UpdateUser replaces the user with candidate.ID by candidate as a whole: fields
// left empty in candidate are cleared. A user known only to the directory gets
// a new local record that shadows it from then on.
func (s *Service) UpdateUser(ctx context.Context, candidate user.User) (*user.User, error) {
	existing, err := s.GetUser(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &directory.StatusError{StatusCode: http.StatusNotFound, Message: "user " + candidate.ID + " not found"}
	}

	candidate.Handle = existing.Handle
	if err := s.local.Upsert(ctx, &candidate); err != nil {
		return nil, fmt.Errorf("reconcile: update user %q: %w", candidate.ID, err)
	}

	s.logger.Info("updated user",
		zap.String("id", candidate.ID),
		zap.Bool("override", existing.Handle == ""),
	)
	return &candidate, nil
}
