package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/userbridge/internal/user"
)

// Users is the reconciliation service the tools delegate to.
type Users interface {
	ListAllUsers(ctx context.Context) ([]user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
	CreateUser(ctx context.Context, candidate user.User) (*user.User, error)
	UpdateUser(ctx context.Context, candidate user.User) (*user.User, error)
}

// UserTools holds the service used by the MCP tool handlers.
type UserTools struct {
	users Users
}

// NewUserTools creates UserTools over users.
func NewUserTools(users Users) *UserTools {
	return &UserTools{users: users}
}

// ListUsers returns the merged local and remote collection.
func (t *UserTools) ListUsers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListUsersInput,
) (*mcp.CallToolResult, ListUsersOutput, error) {
	users, err := t.users.ListAllUsers(ctx)
	if err != nil {
		return nil, ListUsersOutput{}, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []user.User{}
	}
	return nil, ListUsersOutput{Users: users, Total: len(users)}, nil
}

// GetUser returns one user, local records first.
func (t *UserTools) GetUser(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetUserInput,
) (*mcp.CallToolResult, UserOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, UserOutput{}, fmt.Errorf("id is required")
	}

	u, err := t.users.GetUser(ctx, id)
	if err != nil {
		return nil, UserOutput{}, fmt.Errorf("get user %q: %w", id, err)
	}
	return nil, UserOutput{User: *u}, nil
}

// CreateUser stores a new local user and returns it with its assigned id.
func (t *UserTools) CreateUser(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateUserInput,
) (*mcp.CallToolResult, UserOutput, error) {
	if input.User.ID != "" {
		return nil, UserOutput{}, fmt.Errorf("id must not be set when creating a user")
	}

	created, err := t.users.CreateUser(ctx, input.User)
	if err != nil {
		return nil, UserOutput{}, fmt.Errorf("create user: %w", err)
	}
	return nil, UserOutput{User: *created}, nil
}

// UpdateUser replaces the user identified by input.User.ID.
func (t *UserTools) UpdateUser(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateUserInput,
) (*mcp.CallToolResult, UserOutput, error) {
	if strings.TrimSpace(input.User.ID) == "" {
		return nil, UserOutput{}, fmt.Errorf("id is required when updating a user")
	}

	updated, err := t.users.UpdateUser(ctx, input.User)
	if err != nil {
		return nil, UserOutput{}, fmt.Errorf("update user %q: %w", input.User.ID, err)
	}
	return nil, UserOutput{User: *updated}, nil
}
