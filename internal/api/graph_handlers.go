package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"flowbuilder/backend/internal/canvas"
	"flowbuilder/backend/internal/services"
	"flowbuilder/backend/pkg/models"
)

// AddNodeRequest places a node from a palette entry.
type AddNodeRequest struct {
	Type     models.Kind     `json:"type" validate:"required,node_kind"`
	Label    string          `json:"label" validate:"required,max=200"`
	Position models.Position `json:"position"`
}

// UpdateConfigRequest sets one config field.
type UpdateConfigRequest struct {
	Key   string `json:"key" validate:"required,max=200"`
	Value string `json:"value"`
}

// UpdateArgsRequest replaces a node's positional arguments.
type UpdateArgsRequest struct {
	Args []string `json:"args"`
}

// AddConnectionRequest links two nodes.
type AddConnectionRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// MutationResponse returns the graph after a change. ID is set when the
// mutation created something.
type MutationResponse struct {
	ID    string              `json:"id,omitempty"`
	Graph services.GraphView `json:"graph"`
}

// ListTemplates returns the node palette.
// (GET /api/v1/templates)
func (h *Handler) ListTemplates(c echo.Context, params ListTemplatesParams) error {
	q := ""
	if params.Q != nil {
		q = *params.Q
	}
	return c.JSON(http.StatusOK, h.svc.Templates(q))
}

// GetGraph returns the live graph with connection curves.
// (GET /api/v1/graph)
func (h *Handler) GetGraph(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Graph())
}

// AddNode places a new node seeded from its template.
// (POST /api/v1/graph/nodes)
func (h *Handler) AddNode(c echo.Context) error {
	var req AddNodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	id := h.svc.AddNode(req.Position, req.Type, req.Label)
	return c.JSON(http.StatusCreated, MutationResponse{ID: id, Graph: h.svc.Graph()})
}

// RemoveNode deletes a node and its connections.
// (DELETE /api/v1/graph/nodes/{nodeId})
func (h *Handler) RemoveNode(c echo.Context, nodeID string) error {
	h.svc.RemoveNode(nodeID)
	return c.JSON(http.StatusOK, MutationResponse{Graph: h.svc.Graph()})
}

// UpdateNodePosition moves a node.
// (PUT /api/v1/graph/nodes/{nodeId}/position)
func (h *Handler) UpdateNodePosition(c echo.Context, nodeID string) error {
	var pos models.Position
	if err := bindAndValidate(c, &pos); err != nil {
		return err
	}
	h.svc.UpdateNodePosition(nodeID, pos)
	return c.JSON(http.StatusOK, MutationResponse{Graph: h.svc.Graph()})
}

// UpdateNodeConfig sets one config field.
// (PUT /api/v1/graph/nodes/{nodeId}/config)
func (h *Handler) UpdateNodeConfig(c echo.Context, nodeID string) error {
	var req UpdateConfigRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	h.svc.UpdateNodeConfig(nodeID, req.Key, req.Value)
	return c.JSON(http.StatusOK, MutationResponse{Graph: h.svc.Graph()})
}

// UpdateNodeArgs replaces the positional arguments.
// (PUT /api/v1/graph/nodes/{nodeId}/args)
func (h *Handler) UpdateNodeArgs(c echo.Context, nodeID string) error {
	var req UpdateArgsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	h.svc.UpdateNodeArgs(nodeID, req.Args)
	return c.JSON(http.StatusOK, MutationResponse{Graph: h.svc.Graph()})
}

// AddConnection links source to target. Rejected links (self, duplicate,
// unknown endpoint) answer 200 with the unchanged graph.
// (POST /api/v1/graph/connections)
func (h *Handler) AddConnection(c echo.Context) error {
	var req AddConnectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	id, ok := h.svc.AddConnection(req.Source, req.Target)
	if !ok {
		return c.JSON(http.StatusOK, MutationResponse{Graph: h.svc.Graph()})
	}
	return c.JSON(http.StatusCreated, MutationResponse{ID: id, Graph: h.svc.Graph()})
}

// RemoveConnection deletes one connection.
// (DELETE /api/v1/graph/connections/{connectionId})
func (h *Handler) RemoveConnection(c echo.Context, connectionID string) error {
	h.svc.RemoveConnection(connectionID)
	return c.JSON(http.StatusOK, MutationResponse{Graph: h.svc.Graph()})
}

// ExportGraph returns the payload a run would send.
// (GET /api/v1/graph/export)
func (h *Handler) ExportGraph(c echo.Context, params ExportGraphParams) error {
	name := "Untitled Test"
	if params.Name != nil && *params.Name != "" {
		name = *params.Name
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="test-config.json"`)
	return c.JSON(http.StatusOK, h.svc.Export(name))
}

// GetCanvas returns the transient interaction state.
// (GET /api/v1/canvas)
func (h *Handler) GetCanvas(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.CanvasView())
}

// DispatchCanvasEvent feeds one pointer event to the interaction engine.
// (POST /api/v1/canvas/events)
func (h *Handler) DispatchCanvasEvent(c echo.Context) error {
	var ev canvas.Event
	if err := bindAndValidate(c, &ev); err != nil {
		return err
	}
	out, err := h.svc.Dispatch(ev)
	if errors.Is(err, canvas.ErrUnknownEvent) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}
