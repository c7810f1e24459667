package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// ListTemplatesParams defines parameters for ListTemplates.
type ListTemplatesParams struct {
	// Q filters templates by label, case-insensitively.
	Q *string `form:"q,omitempty" json:"q,omitempty"`
}

// ExportGraphParams defines parameters for ExportGraph.
type ExportGraphParams struct {
	Name *string `form:"name,omitempty" json:"name,omitempty"`
}

// ListFlowsParams defines parameters for ListFlows.
type ListFlowsParams struct {
	Q *string `form:"q,omitempty" json:"q,omitempty"`
}

// ServerInterface represents all server handlers of the /api/v1 surface.
type ServerInterface interface {
	// (GET /templates)
	ListTemplates(ctx echo.Context, params ListTemplatesParams) error
	// (GET /graph)
	GetGraph(ctx echo.Context) error
	// (POST /graph/nodes)
	AddNode(ctx echo.Context) error
	// (DELETE /graph/nodes/{nodeId})
	RemoveNode(ctx echo.Context, nodeID string) error
	// (PUT /graph/nodes/{nodeId}/position)
	UpdateNodePosition(ctx echo.Context, nodeID string) error
	// (PUT /graph/nodes/{nodeId}/config)
	UpdateNodeConfig(ctx echo.Context, nodeID string) error
	// (PUT /graph/nodes/{nodeId}/args)
	UpdateNodeArgs(ctx echo.Context, nodeID string) error
	// (POST /graph/connections)
	AddConnection(ctx echo.Context) error
	// (DELETE /graph/connections/{connectionId})
	RemoveConnection(ctx echo.Context, connectionID string) error
	// (GET /graph/export)
	ExportGraph(ctx echo.Context, params ExportGraphParams) error
	// (GET /canvas)
	GetCanvas(ctx echo.Context) error
	// (POST /canvas/events)
	DispatchCanvasEvent(ctx echo.Context) error
	// (POST /runs)
	RunTest(ctx echo.Context) error
	// (GET /results)
	ListResults(ctx echo.Context) error
	// (GET /results/stats)
	GetResultStats(ctx echo.Context) error
	// (GET /results/{resultId})
	GetResult(ctx echo.Context, resultID string) error
	// (GET /flows)
	ListFlows(ctx echo.Context, params ListFlowsParams) error
	// (POST /flows)
	SaveFlow(ctx echo.Context) error
	// (GET /flows/{flowId})
	GetFlow(ctx echo.Context, flowID string) error
	// (POST /flows/{flowId}/open)
	OpenFlow(ctx echo.Context, flowID string) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func pathParam(ctx echo.Context, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, ctx.Param(name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return value, nil
}

func queryParam(ctx echo.Context, name string, dest **string) error {
	err := runtime.BindQueryParameter("form", true, false, name, ctx.QueryParams(), dest)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return nil
}

// ListTemplates converts echo context to params.
func (w *ServerInterfaceWrapper) ListTemplates(ctx echo.Context) error {
	var params ListTemplatesParams
	if err := queryParam(ctx, "q", &params.Q); err != nil {
		return err
	}
	return w.Handler.ListTemplates(ctx, params)
}

func (w *ServerInterfaceWrapper) GetGraph(ctx echo.Context) error {
	return w.Handler.GetGraph(ctx)
}

func (w *ServerInterfaceWrapper) AddNode(ctx echo.Context) error {
	return w.Handler.AddNode(ctx)
}

func (w *ServerInterfaceWrapper) RemoveNode(ctx echo.Context) error {
	nodeID, err := pathParam(ctx, "nodeId")
	if err != nil {
		return err
	}
	return w.Handler.RemoveNode(ctx, nodeID)
}

func (w *ServerInterfaceWrapper) UpdateNodePosition(ctx echo.Context) error {
	nodeID, err := pathParam(ctx, "nodeId")
	if err != nil {
		return err
	}
	return w.Handler.UpdateNodePosition(ctx, nodeID)
}

func (w *ServerInterfaceWrapper) UpdateNodeConfig(ctx echo.Context) error {
	nodeID, err := pathParam(ctx, "nodeId")
	if err != nil {
		return err
	}
	return w.Handler.UpdateNodeConfig(ctx, nodeID)
}

func (w *ServerInterfaceWrapper) UpdateNodeArgs(ctx echo.Context) error {
	nodeID, err := pathParam(ctx, "nodeId")
	if err != nil {
		return err
	}
	return w.Handler.UpdateNodeArgs(ctx, nodeID)
}

func (w *ServerInterfaceWrapper) AddConnection(ctx echo.Context) error {
	return w.Handler.AddConnection(ctx)
}

func (w *ServerInterfaceWrapper) RemoveConnection(ctx echo.Context) error {
	connectionID, err := pathParam(ctx, "connectionId")
	if err != nil {
		return err
	}
	return w.Handler.RemoveConnection(ctx, connectionID)
}

func (w *ServerInterfaceWrapper) ExportGraph(ctx echo.Context) error {
	var params ExportGraphParams
	if err := queryParam(ctx, "name", &params.Name); err != nil {
		return err
	}
	return w.Handler.ExportGraph(ctx, params)
}

func (w *ServerInterfaceWrapper) GetCanvas(ctx echo.Context) error {
	return w.Handler.GetCanvas(ctx)
}

func (w *ServerInterfaceWrapper) DispatchCanvasEvent(ctx echo.Context) error {
	return w.Handler.DispatchCanvasEvent(ctx)
}

func (w *ServerInterfaceWrapper) RunTest(ctx echo.Context) error {
	return w.Handler.RunTest(ctx)
}

func (w *ServerInterfaceWrapper) ListResults(ctx echo.Context) error {
	return w.Handler.ListResults(ctx)
}

func (w *ServerInterfaceWrapper) GetResultStats(ctx echo.Context) error {
	return w.Handler.GetResultStats(ctx)
}

func (w *ServerInterfaceWrapper) GetResult(ctx echo.Context) error {
	resultID, err := pathParam(ctx, "resultId")
	if err != nil {
		return err
	}
	return w.Handler.GetResult(ctx, resultID)
}

func (w *ServerInterfaceWrapper) ListFlows(ctx echo.Context) error {
	var params ListFlowsParams
	if err := queryParam(ctx, "q", &params.Q); err != nil {
		return err
	}
	return w.Handler.ListFlows(ctx, params)
}

func (w *ServerInterfaceWrapper) SaveFlow(ctx echo.Context) error {
	return w.Handler.SaveFlow(ctx)
}

func (w *ServerInterfaceWrapper) GetFlow(ctx echo.Context) error {
	flowID, err := pathParam(ctx, "flowId")
	if err != nil {
		return err
	}
	return w.Handler.GetFlow(ctx, flowID)
}

func (w *ServerInterfaceWrapper) OpenFlow(ctx echo.Context) error {
	flowID, err := pathParam(ctx, "flowId")
	if err != nil {
		return err
	}
	return w.Handler.OpenFlow(ctx, flowID)
}

// EchoRouter is satisfied by both *echo.Echo and *echo.Group.
type EchoRouter interface {
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}

// RegisterHandlersWithBaseURL registers the routes under baseURL.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.GET(baseURL+"/templates", wrapper.ListTemplates)
	router.GET(baseURL+"/graph", wrapper.GetGraph)
	router.POST(baseURL+"/graph/nodes", wrapper.AddNode)
	router.DELETE(baseURL+"/graph/nodes/:nodeId", wrapper.RemoveNode)
	router.PUT(baseURL+"/graph/nodes/:nodeId/position", wrapper.UpdateNodePosition)
	router.PUT(baseURL+"/graph/nodes/:nodeId/config", wrapper.UpdateNodeConfig)
	router.PUT(baseURL+"/graph/nodes/:nodeId/args", wrapper.UpdateNodeArgs)
	router.POST(baseURL+"/graph/connections", wrapper.AddConnection)
	router.DELETE(baseURL+"/graph/connections/:connectionId", wrapper.RemoveConnection)
	router.GET(baseURL+"/graph/export", wrapper.ExportGraph)
	router.GET(baseURL+"/canvas", wrapper.GetCanvas)
	router.POST(baseURL+"/canvas/events", wrapper.DispatchCanvasEvent)
	router.POST(baseURL+"/runs", wrapper.RunTest)
	router.GET(baseURL+"/results", wrapper.ListResults)
	router.GET(baseURL+"/results/stats", wrapper.GetResultStats)
	router.GET(baseURL+"/results/:resultId", wrapper.GetResult)
	router.GET(baseURL+"/flows", wrapper.ListFlows)
	router.POST(baseURL+"/flows", wrapper.SaveFlow)
	router.GET(baseURL+"/flows/:flowId", wrapper.GetFlow)
	router.POST(baseURL+"/flows/:flowId/open", wrapper.OpenFlow)
}
