// Package mcp exposes the builder session as Model Context Protocol tools so
// agents can assemble and run test flows.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"flowbuilder/backend/internal/auth"
	"flowbuilder/backend/internal/repository"
	"flowbuilder/backend/internal/services"
	"flowbuilder/backend/pkg/models"
)

const authorMCP = "mcp"

type Server struct {
	mcpServer *server.MCPServer
	builder   *services.BuilderService
}

func NewServer(builder *services.BuilderService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Test Flow Builder",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		builder: builder,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_templates",
			mcp.WithDescription("List the node templates that can be placed on the canvas"),
			mcp.WithString("query", mcp.Description("Optional case-insensitive label filter")),
		),
		s.handleListTemplates,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_graph", mcp.WithDescription("Return the nodes and connections of the test being edited")),
		s.handleGetGraph,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"add_node",
			mcp.WithDescription("Place a node built from a template"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Node kind"),
				mcp.Enum(string(models.KindContext), string(models.KindTrigger), string(models.KindAction), string(models.KindAssertion))),
			mcp.WithString("label", mcp.Required(), mcp.Description("Template label, e.g. Page Load")),
			mcp.WithNumber("x", mcp.Description("Canvas x coordinate")),
			mcp.WithNumber("y", mcp.Description("Canvas y coordinate")),
		),
		s.handleAddNode,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"update_node_config",
			mcp.WithDescription("Set one configuration field of a node"),
			mcp.WithString("node_id", mcp.Required(), mcp.Description("The ID of the node")),
			mcp.WithString("key", mcp.Required(), mcp.Description("Field name")),
			mcp.WithString("value", mcp.Required(), mcp.Description("Field value")),
		),
		s.handleUpdateNodeConfig,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"connect_nodes",
			mcp.WithDescription("Draw a connection from one node's output to another node's input"),
			mcp.WithString("source", mcp.Required(), mcp.Description("Source node ID")),
			mcp.WithString("target", mcp.Required(), mcp.Description("Target node ID")),
		),
		s.handleConnectNodes,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"remove_node",
			mcp.WithDescription("Delete a node and every connection touching it"),
			mcp.WithString("node_id", mcp.Required(), mcp.Description("The ID of the node")),
		),
		s.handleRemoveNode,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"export_test",
			mcp.WithDescription("Show the execution payload the current graph would produce"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Test name")),
		),
		s.handleExportTest,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_test",
			mcp.WithDescription("Run the current graph on the test runner and record the result"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Test name")),
		),
		s.handleRunTest,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"save_flow",
			mcp.WithDescription("Save the current graph to the flow library"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Flow name")),
		),
		s.handleSaveFlow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_flows",
			mcp.WithDescription("List saved flows"),
			mcp.WithString("query", mcp.Description("Optional case-insensitive name filter")),
		),
		s.handleListFlows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"open_flow",
			mcp.WithDescription("Load a saved flow into the editor, replacing the current graph"),
			mcp.WithString("flow_id", mcp.Required(), mcp.Description("The ID of the flow")),
		),
		s.handleOpenFlow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_results", mcp.WithDescription("List recorded test results, most recent first")),
		s.handleListResults,
	)
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func requiredString(args map[string]interface{}, name string) (string, *mcp.CallToolResult) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", mcp.NewToolResultError("Missing required parameter: " + name)
	}
	return v, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, _ := arguments(request)["query"].(string)
	return jsonResult(s.builder.Templates(query))
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.builder.Graph())
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	kind, errRes := requiredString(args, "type")
	if errRes != nil {
		return errRes, nil
	}
	if !models.Kind(kind).Valid() {
		return mcp.NewToolResultError("Invalid node type: " + kind), nil
	}
	label, errRes := requiredString(args, "label")
	if errRes != nil {
		return errRes, nil
	}
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)

	id := s.builder.AddNode(models.Position{X: x, Y: y}, models.Kind(kind), label)
	node, _ := s.builder.Node(id)
	return jsonResult(node)
}

func (s *Server) handleUpdateNodeConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, errRes := requiredString(args, "node_id")
	if errRes != nil {
		return errRes, nil
	}
	key, errRes := requiredString(args, "key")
	if errRes != nil {
		return errRes, nil
	}
	value, _ := args["value"].(string)

	s.builder.UpdateNodeConfig(id, key, value)
	node, ok := s.builder.Node(id)
	if !ok {
		return mcp.NewToolResultError("Unknown node: " + id), nil
	}
	return jsonResult(node)
}

func (s *Server) handleConnectNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	source, errRes := requiredString(args, "source")
	if errRes != nil {
		return errRes, nil
	}
	target, errRes := requiredString(args, "target")
	if errRes != nil {
		return errRes, nil
	}

	id, ok := s.builder.AddConnection(source, target)
	if !ok {
		return mcp.NewToolResultError("Connection rejected: nodes must exist, differ, and not already be connected"), nil
	}
	return mcp.NewToolResultText(id), nil
}

func (s *Server) handleRemoveNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requiredString(arguments(request), "node_id")
	if errRes != nil {
		return errRes, nil
	}
	s.builder.RemoveNode(id)
	return mcp.NewToolResultText("Node removed"), nil
}

func (s *Server) handleExportTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, errRes := requiredString(arguments(request), "name")
	if errRes != nil {
		return errRes, nil
	}
	return jsonResult(s.builder.Export(name))
}

func (s *Server) handleRunTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, errRes := requiredString(arguments(request), "name")
	if errRes != nil {
		return errRes, nil
	}
	out, err := s.builder.RunTest(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to run test: %v", err)), nil
	}
	return jsonResult(out)
}

func (s *Server) handleSaveFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, errRes := requiredString(arguments(request), "name")
	if errRes != nil {
		return errRes, nil
	}
	author := authorMCP
	if u, ok := auth.UserFromContext(ctx); ok && u.Email != "" {
		author = u.Email
	}
	flow, err := s.builder.SaveFlow(ctx, name, author)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save flow: %v", err)), nil
	}
	return jsonResult(flow)
}

func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, _ := arguments(request)["query"].(string)
	flows, err := s.builder.ListFlows(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list flows: %v", err)), nil
	}
	return jsonResult(flows)
}

func (s *Server) handleOpenFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requiredString(arguments(request), "flow_id")
	if errRes != nil {
		return errRes, nil
	}
	view, err := s.builder.OpenFlow(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return mcp.NewToolResultError("Unknown flow: " + id), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open flow: %v", err)), nil
	}
	return jsonResult(view)
}

func (s *Server) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.builder.ListResults(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list results: %v", err)), nil
	}
	return jsonResult(results)
}

// MountHTTPHandlers serves the SSE transport under /mcp. Every endpoint is
// wrapped with protect, the same authentication the REST API uses.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer, protect func(http.Handler) http.Handler) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.Handle("/mcp", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})))
	mux.Handle("/mcp/sse", protect(sseServer))
	mux.Handle("/mcp/message", protect(sseServer))
}
