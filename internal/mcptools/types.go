package mcptools

import "github.com/dusk-indust/userbridge/internal/user"

// --- MCP Tool Input/Output Types ---
// The MCP Go SDK generates each tool's JSON schema from these structs.

// ListUsersInput is the input for the list_users MCP tool.
type ListUsersInput struct{}

// ListUsersOutput is the result of the list_users MCP tool.
type ListUsersOutput struct {
	Users []user.User `json:"users"`
	Total int         `json:"total"`
}

// GetUserInput is the input for the get_user MCP tool.
type GetUserInput struct {
	ID string `json:"id" jsonschema:"id of the user to fetch"`
}

// CreateUserInput is the input for the create_user MCP tool.
type CreateUserInput struct {
	User user.User `json:"user" jsonschema:"the user to create; id must be left empty and is assigned by the service"`
}

// UpdateUserInput is the input for the update_user MCP tool.
type UpdateUserInput struct {
	User user.User `json:"user" jsonschema:"the complete replacement record; id selects the user"`
}

// UserOutput is the result of the get_user, create_user and update_user tools.
type UserOutput struct {
	User user.User `json:"user"`
}
