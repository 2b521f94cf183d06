package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/flow/internal/logging"
	"github.com/aretw0/flow/pkg/deploy"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/nodes/util"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Manager defines the deployment operations exposed as MCP tools.
type Manager interface {
	Update(ctx context.Context, def *domain.GraphDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
	List() []deploy.Summary
	Lookup(name string) (uuid.UUID, bool)
	Spec() domain.Spec
	Trigger(ctx context.Context, id uuid.UUID, ref domain.PortRef) error
	Read(ctx context.Context, id uuid.UUID, ref domain.PortRef) (any, error)
	Probes(id uuid.UUID) ([]util.Reading, error)
}

// GraphArgs names a deployed graph by ID or name.
type GraphArgs struct {
	Graph string `json:"graph"`
}

// PortArgs names a port of a deployed graph.
type PortArgs struct {
	Graph string `json:"graph"`
	Ref   int    `json:"ref"`
}

// DeployArgs carries a graph definition as JSON.
type DeployArgs struct {
	Definition string `json:"definition"`
}

// ProbesResponse is what the probes of a graph observed.
type ProbesResponse struct {
	Graph    string         `json:"graph" jsonschema_description:"The graph ID"`
	Readings []util.Reading `json:"readings" jsonschema_description:"One reading per Util/Probe node"`
}

// PortResponse is the value read from a port.
type PortResponse struct {
	Graph string `json:"graph" jsonschema_description:"The graph ID"`
	Ref   int    `json:"ref" jsonschema_description:"The port reference that was read"`
	Value any    `json:"value" jsonschema_description:"The value the port produced"`
}

// Server wraps a deployment Manager and exposes it as an MCP Server.
type Server struct {
	manager   Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(manager Manager, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		manager:   manager,
		mcpServer: server.NewMCPServer("flow-mcp", version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// resolve accepts a graph ID or a deployed graph name.
func (s *Server) resolve(graph string) (uuid.UUID, error) {
	if id, err := uuid.Parse(graph); err == nil {
		return id, nil
	}
	if id, ok := s.manager.Lookup(graph); ok {
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("graph %q: %w", graph, domain.ErrGraphNotFound)
}

func (s *Server) registerTools() {
	// TOOL: list_graphs
	s.mcpServer.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List the deployed graphs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.manager.List())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_spec
	s.mcpServer.AddTool(mcp.NewTool("get_spec",
		mcp.WithDescription("Describe every node kind, including deployed graphs that export ports."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.manager.Spec())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: deploy_graph
	s.mcpServer.AddTool(mcp.NewTool("deploy_graph",
		mcp.WithDescription("Deploy or replace a graph from its JSON definition."),
		mcp.WithString("definition", mcp.Required(), mcp.Description("JSON object with id, name, doc and nodes")),
	), s.handleDeploy)

	// TOOL: delete_graph
	s.mcpServer.AddTool(mcp.NewTool("delete_graph",
		mcp.WithDescription("Shut down and remove a deployed graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph ID or name")),
	), mcp.NewTypedToolHandler(s.handleDelete))

	// TOOL: trigger
	s.mcpServer.AddTool(mcp.NewTool("trigger",
		mcp.WithDescription("Emit a control port of a deployed graph and run the resulting chain."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph ID or name")),
		mcp.WithNumber("ref", mcp.Required(), mcp.Description("Control port reference")),
	), mcp.NewTypedToolHandler(s.handleTrigger))

	// TOOL: read_port
	s.mcpServer.AddTool(mcp.NewTool("read_port",
		mcp.WithDescription("Pull the current value of a data port of a deployed graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph ID or name")),
		mcp.WithNumber("ref", mcp.Required(), mcp.Description("Data port reference")),
		mcp.WithOutputSchema[PortResponse](),
	), mcp.NewStructuredToolHandler(s.handleRead))

	// TOOL: get_probes
	s.mcpServer.AddTool(mcp.NewTool("get_probes",
		mcp.WithDescription("Report what the Util/Probe nodes of a deployed graph observed."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Graph ID or name")),
		mcp.WithOutputSchema[ProbesResponse](),
	), mcp.NewStructuredToolHandler(s.handleProbes))
}

func (s *Server) handleDeploy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("definition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var def domain.GraphDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}
	if def.ID == uuid.Nil {
		if def.Name == "" {
			return mcp.NewToolResultError("definition needs an id or a name"), nil
		}
		def.ID = domain.StableID(def.Name)
	}
	if err := s.manager.Update(ctx, &def); err != nil {
		s.logger.Warn("MCP deploy rejected", "graph", def.Name, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("deploy failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deployed %s as %s", def.Name, def.ID)), nil
}

func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (*mcp.CallToolResult, error) {
	id, err := s.resolve(args.Graph)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.manager.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s", id)), nil
}

func (s *Server) handleTrigger(ctx context.Context, request mcp.CallToolRequest, args PortArgs) (*mcp.CallToolResult, error) {
	id, err := s.resolve(args.Graph)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.manager.Trigger(ctx, id, domain.PortRef(args.Ref)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trigger failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("triggered %d on %s", args.Ref, id)), nil
}

func (s *Server) handleRead(ctx context.Context, request mcp.CallToolRequest, args PortArgs) (PortResponse, error) {
	id, err := s.resolve(args.Graph)
	if err != nil {
		return PortResponse{}, err
	}
	v, err := s.manager.Read(ctx, id, domain.PortRef(args.Ref))
	if err != nil {
		return PortResponse{}, fmt.Errorf("read failed: %w", err)
	}
	return PortResponse{Graph: id.String(), Ref: args.Ref, Value: v}, nil
}

func (s *Server) handleProbes(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (ProbesResponse, error) {
	id, err := s.resolve(args.Graph)
	if err != nil {
		return ProbesResponse{}, err
	}
	readings, err := s.manager.Probes(id)
	if err != nil {
		return ProbesResponse{}, err
	}
	return ProbesResponse{Graph: id.String(), Readings: readings}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: flow://spec
	s.mcpServer.AddResource(mcp.NewResource("flow://spec", "Node Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.manager.Spec())
		if err != nil {
			return nil, errors.New("failed to encode spec")
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "flow://spec",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
