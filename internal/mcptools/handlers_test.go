package mcptools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/userbridge/internal/user"
)

type mockUsers struct {
	listAll func(ctx context.Context) ([]user.User, error)
	create  func(ctx context.Context, candidate user.User) (*user.User, error)
}

func (m *mockUsers) ListAllUsers(ctx context.Context) ([]user.User, error) {
	return m.listAll(ctx)
}

func (m *mockUsers) GetUser(context.Context, string) (*user.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUsers) CreateUser(ctx context.Context, candidate user.User) (*user.User, error) {
	return m.create(ctx, candidate)
}

func (m *mockUsers) UpdateUser(context.Context, user.User) (*user.User, error) {
	return nil, errors.New("not implemented")
}

func TestListUsers_NilBecomesEmpty(t *testing.T) {
	tools := NewUserTools(&mockUsers{
		listAll: func(context.Context) ([]user.User, error) { return nil, nil },
	})

	_, out, err := tools.ListUsers(context.Background(), nil, ListUsersInput{})
	require.NoError(t, err)
	assert.NotNil(t, out.Users)
	assert.Zero(t, out.Total)
}

func TestListUsers_WrapsError(t *testing.T) {
	boom := errors.New("boom")
	tools := NewUserTools(&mockUsers{
		listAll: func(context.Context) ([]user.User, error) { return nil, boom },
	})

	_, _, err := tools.ListUsers(context.Background(), nil, ListUsersInput{})
	assert.ErrorIs(t, err, boom)
}

func TestCreateUser_RejectsIDBeforeCallingService(t *testing.T) {
	called := false
	tools := NewUserTools(&mockUsers{
		create: func(context.Context, user.User) (*user.User, error) {
			called = true
			return &user.User{}, nil
		},
	})

	_, _, err := tools.CreateUser(context.Background(), nil, CreateUserInput{User: user.User{ID: "1"}})
	require.Error(t, err)
	assert.False(t, called)
}
