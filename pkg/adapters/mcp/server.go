package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/panel"
	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultSessionID is used when a tool call names no session.
const DefaultSessionID = "mcp"

// ExpertsURI is the resource holding the default session's roster snapshot.
const ExpertsURI = "panel://experts"

// AskArgs are the arguments of the ask_panel tool.
type AskArgs struct {
	Question string `json:"question"`
	Session  string `json:"session,omitempty"`
}

// AskResult aligns with the OpenAPI PanelResponse schema.
type AskResult struct {
	Answer   string                 `json:"final_text" jsonschema_description:"The synthesized answer"`
	Opinions []domain.OpinionResult `json:"opinions" jsonschema_description:"Each expert's opinion in panel order"`
	Model    domain.ModelConfig     `json:"model" jsonschema_description:"Model parameters used"`
}

// Server exposes a panel as an MCP server.
type Server struct {
	asker     session.Asker
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. A nil logger discards output.
func NewServer(asker session.Asker, sessions *session.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		asker:     asker,
		sessions:  sessions,
		logger:    logger,
		mcpServer: server.NewMCPServer("panel-mcp", strings.TrimSpace(panel.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, mainly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	askTool := mcp.NewTool("ask_panel",
		mcp.WithDescription("Ask every expert on the panel the same question and return one synthesized answer."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question or topic")),
		mcp.WithString("session", mcp.Description("Session whose roster and model to use (default \"mcp\")")),
		mcp.WithOutputSchema[AskResult](),
	)
	s.mcpServer.AddTool(askTool, mcp.NewStructuredToolHandler(s.handleAsk))

	s.mcpServer.AddTool(mcp.NewTool("list_experts",
		mcp.WithDescription("List the experts on a session's panel, in panel order."),
		mcp.WithString("session", mcp.Description("Session id (default \"mcp\")")),
	), s.handleListExperts)
}

func sessionOrDefault(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return DefaultSessionID
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args AskArgs) (AskResult, error) {
	sessionID := sessionOrDefault(args.Session)
	resp, err := s.sessions.Ask(ctx, sessionID, s.asker, args.Question)
	if err != nil && resp == nil {
		s.logger.Warn("MCP ask_panel failed", "session_id", sessionID, "err", err)
		return AskResult{}, fmt.Errorf("ask failed: %w", err)
	}
	if err != nil {
		s.logger.Error("MCP ask_panel: transcript not saved", "session_id", sessionID, "err", err)
	}
	return AskResult{
		Answer:   resp.FinalText,
		Opinions: resp.Opinions,
		Model:    resp.Model,
	}, nil
}

func (s *Server) handleListExperts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := sessionOrDefault(request.GetString("session", ""))
	state, err := s.sessions.LoadOrStart(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load session failed: %v", err)), nil
	}
	jsonBytes, err := json.Marshal(state.Experts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode experts failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ExpertsURI, "Expert Roster",
		mcp.WithResourceDescription("Snapshot of the default session's experts, keyed by id in panel order."),
		mcp.WithMIMEType("application/json"),
	), s.readExperts)
}

func (s *Server) readExperts(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	reg, err := s.sessions.Registry(ctx, DefaultSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	data, err := reg.ExportSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to export roster: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ExpertsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
