package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"flowbuilder/backend/internal/auth"
	"flowbuilder/backend/internal/repository"
	"flowbuilder/backend/internal/services"
)

// RunTestRequest names the test to run.
type RunTestRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// SaveFlowRequest names the flow to save.
type SaveFlowRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// RunTest submits the live graph to the runner.
// (POST /api/v1/runs)
func (h *Handler) RunTest(c echo.Context) error {
	var req RunTestRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.svc.RunTest(c.Request().Context(), req.Name)
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrRunnerUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "Test execution failed: "+err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if out.Result == nil {
		return c.JSON(http.StatusAccepted, out)
	}
	return c.JSON(http.StatusCreated, out)
}

// ListResults returns the result history, most recent first.
// (GET /api/v1/results)
func (h *Handler) ListResults(c echo.Context) error {
	results, err := h.svc.ListResults(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

// GetResultStats aggregates the history for the dashboard.
// (GET /api/v1/results/stats)
func (h *Handler) GetResultStats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

// GetResult returns one result.
// (GET /api/v1/results/{resultId})
func (h *Handler) GetResult(c echo.Context, resultID string) error {
	result, err := h.svc.GetResult(c.Request().Context(), resultID)
	if err != nil {
		return notFoundOr500(err, "result "+resultID)
	}
	return c.JSON(http.StatusOK, result)
}

// ListFlows returns saved flows, optionally filtered by name.
// (GET /api/v1/flows)
func (h *Handler) ListFlows(c echo.Context, params ListFlowsParams) error {
	q := ""
	if params.Q != nil {
		q = *params.Q
	}
	flows, err := h.svc.ListFlows(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, flows)
}

// SaveFlow snapshots the live graph into the library.
// (POST /api/v1/flows)
func (h *Handler) SaveFlow(c echo.Context) error {
	var req SaveFlowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	author := ""
	if u, ok := auth.UserFromContext(ctx); ok {
		author = u.Email
	}

	flow, err := h.svc.SaveFlow(ctx, req.Name, author)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save flow: "+err.Error())
	}
	return c.JSON(http.StatusCreated, flow)
}

// GetFlow returns one saved flow.
// (GET /api/v1/flows/{flowId})
func (h *Handler) GetFlow(c echo.Context, flowID string) error {
	flow, err := h.svc.GetFlow(c.Request().Context(), flowID)
	if err != nil {
		return notFoundOr500(err, "flow "+flowID)
	}
	return c.JSON(http.StatusOK, flow)
}

// OpenFlow loads a saved flow into the editor.
// (POST /api/v1/flows/{flowId}/open)
func (h *Handler) OpenFlow(c echo.Context, flowID string) error {
	view, err := h.svc.OpenFlow(c.Request().Context(), flowID)
	if err != nil {
		return notFoundOr500(err, "flow "+flowID)
	}
	return c.JSON(http.StatusOK, MutationResponse{Graph: view})
}

func notFoundOr500(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
