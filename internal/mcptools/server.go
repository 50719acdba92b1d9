// Package mcptools exposes the user service as Model Context Protocol tools.
package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// version is set by the linker at build time.
var version = "dev"

// NewUserMCPServer creates an MCP server with the four user tools registered.
func NewUserMCPServer(users Users) *mcp.Server {
	tools := NewUserTools(users)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "userbridge",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_users",
		Description: "List every user: locally stored users first, then directory users whose id is not overridden locally.",
	}, tools.ListUsers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_user",
		Description: "Fetch one user by id. Local records take precedence over the remote directory.",
	}, tools.GetUser)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_user",
		Description: "Create a local user. The id is assigned by the service and must not be supplied.",
	}, tools.CreateUser)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_user",
		Description: "Replace a user by id with the given record. Fields left out are cleared. Updating a directory user creates a local override.",
	}, tools.UpdateUser)

	return server
}

// RunStdio serves the MCP tools on stdin/stdout, blocking until stdin is
// closed or ctx is cancelled.
func RunStdio(ctx context.Context, users Users) error {
	return NewUserMCPServer(users).Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP tools over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, users Users, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := NewUserMCPServer(users)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp server shutdown", zap.Error(err))
		}
	}()

	logger.Info("mcp server listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
