package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/panel/pkg/adapters/mcp"
)

// RunMCP serves the panel as an MCP server over stdio or SSE.
func RunMCP(ctx context.Context, app *App, transport, addr, baseURL string) error {
	engine, err := app.NewEngine(ctx)
	if err != nil {
		return err
	}
	srv := mcp.NewServer(engine, app.Sessions, app.Logger)

	switch transport {
	case "stdio":
		app.Logger.Info("Starting Panel MCP Server (Stdio)...")
		return srv.ServeStdio()
	case "sse":
		app.Logger.Info("Starting Panel MCP Server (SSE)", "addr", addr)
		return srv.ServeSSE(ctx, addr, baseURL)
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	}
}
