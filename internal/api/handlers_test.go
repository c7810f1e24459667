package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbuilder/backend/internal/auth"
	"flowbuilder/backend/internal/repository"
	"flowbuilder/backend/internal/services"
	"flowbuilder/backend/pkg/models"
)

type runnerFunc func(ctx context.Context, req services.ExecutionRequest) (*services.ExecutionResponse, error)

func (f runnerFunc) Execute(ctx context.Context, req services.ExecutionRequest) (*services.ExecutionResponse, error) {
	return f(ctx, req)
}

func newTestServer(t *testing.T, runner services.RunnerClient) (*echo.Echo, *services.BuilderService) {
	t.Helper()
	svc := services.NewBuilderService(repository.NewMemoryStore(), runner, nil, nil)
	h := NewHandler(svc, nil)

	e := echo.New()
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = ProblemErrorHandler(nil)
	e.GET("/health", h.HandleHealth)
	g := e.Group("/api/v1")
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithUser(c.Request().Context(), auth.User{Email: "tester@example.com"})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	RegisterHandlers(g, h)
	return e, svc
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec := do(t, e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.HealthStatus](t, rec)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Checks["store"])
}

func TestTemplates_Search(t *testing.T) {
	e, _ := newTestServer(t, nil)

	all := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/api/v1/templates", ""))
	found := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/api/v1/templates?q=xml", ""))

	assert.Len(t, all, 7)
	require.Len(t, found, 1)
	assert.Equal(t, "Validate XML Schema", found[0]["label"])
}

func TestGraph_EditingFlow(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := do(t, e, http.MethodPost, "/api/v1/graph/nodes", `{"type":"trigger","label":"Page Load","position":{"x":100,"y":100}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	a := decode[MutationResponse](t, rec).ID

	rec = do(t, e, http.MethodPost, "/api/v1/graph/nodes", `{"type":"action","label":"Click Element","position":{"x":400,"y":100}}`)
	b := decode[MutationResponse](t, rec).ID

	rec = do(t, e, http.MethodPost, "/api/v1/graph/connections", `{"source":"`+a+`","target":"`+b+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	conn := decode[MutationResponse](t, rec)
	assert.Equal(t, "conn-1", conn.ID)
	require.Len(t, conn.Graph.Paths, 1)

	// duplicate and self links leave the graph untouched
	rec = do(t, e, http.MethodPost, "/api/v1/graph/connections", `{"source":"`+a+`","target":"`+b+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[MutationResponse](t, rec).Graph.Connections, 1)
	rec = do(t, e, http.MethodPost, "/api/v1/graph/connections", `{"source":"`+a+`","target":"`+a+`"}`)
	assert.Len(t, decode[MutationResponse](t, rec).Graph.Connections, 1)

	rec = do(t, e, http.MethodPut, "/api/v1/graph/nodes/"+b+"/config", `{"key":"selector","value":"#go"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodPut, "/api/v1/graph/nodes/"+b+"/position", `{"x":500,"y":250}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[MutationResponse](t, rec).Graph
	assert.Equal(t, models.Position{X: 500, Y: 250}, view.Nodes[1].Position)
	assert.Equal(t, models.Position{X: 488, Y: 290}, view.Paths[0].End)

	rec = do(t, e, http.MethodGet, "/api/v1/graph/export?name=Login", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"json_config":{"name":"Login","steps":[
		{"keyword":"Page Load","args":["https://example.com"]},
		{"keyword":"Click Element","args":["#go"]}]}}`, rec.Body.String())

	// unknown ids are silently ignored
	rec = do(t, e, http.MethodDelete, "/api/v1/graph/nodes/does-not-exist", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodDelete, "/api/v1/graph/nodes/"+a, "")
	require.Equal(t, http.StatusOK, rec.Code)
	after := decode[MutationResponse](t, rec).Graph
	assert.Len(t, after.Nodes, 1)
	assert.Empty(t, after.Connections)
}

func TestGraph_ValidationErrorsAreProblems(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := do(t, e, http.MethodPost, "/api/v1/graph/nodes", `{"type":"widget","label":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
	problem := decode[models.ProblemDetails](t, rec)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Contains(t, problem.Detail, "type")
	assert.Contains(t, problem.Detail, "label: field is required")
	assert.Equal(t, "/api/v1/graph/nodes", problem.Instance)
}

func TestCanvas_Events(t *testing.T) {
	e, svc := newTestServer(t, nil)

	rec := do(t, e, http.MethodPost, "/api/v1/canvas/events", `{"type":"select_pending","kind":"assertion","label":"Element Exists"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/v1/canvas", "")
	assert.Contains(t, rec.Body.String(), `"label":"Element Exists"`)

	rec = do(t, e, http.MethodPost, "/api/v1/canvas/events", `{"type":"click","point":{"x":10,"y":20}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	placed := decode[map[string]any](t, rec)["placed_node_id"].(string)
	n, ok := svc.Node(placed)
	require.True(t, ok)
	assert.Equal(t, models.KindAssertion, n.Kind)

	rec = do(t, e, http.MethodPost, "/api/v1/canvas/events", `{"type":"spin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, e, http.MethodPost, "/api/v1/canvas/events", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns_StatusCodes(t *testing.T) {
	var next func() (*services.ExecutionResponse, error)
	e, _ := newTestServer(t, runnerFunc(func(context.Context, services.ExecutionRequest) (*services.ExecutionResponse, error) {
		return next()
	}))

	next = func() (*services.ExecutionResponse, error) {
		return &services.ExecutionResponse{Result: &services.RunOutput{ReturnCode: "0", Stdout: "Duration: 2.5s"}}, nil
	}
	rec := do(t, e, http.MethodPost, "/api/v1/runs", `{"name":"Smoke"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[services.RunOutcome](t, rec)
	require.NotNil(t, out.Result)
	assert.Equal(t, models.StatusPassed, out.Result.Status)

	next = func() (*services.ExecutionResponse, error) {
		return &services.ExecutionResponse{Message: "queued"}, nil
	}
	rec = do(t, e, http.MethodPost, "/api/v1/runs", `{"name":"Smoke"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "queued", decode[services.RunOutcome](t, rec).Message)

	next = func() (*services.ExecutionResponse, error) { return nil, errors.New("dial tcp: refused") }
	rec = do(t, e, http.MethodPost, "/api/v1/runs", `{"name":"Smoke"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/v1/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	results := decode[[]models.Result](t, do(t, e, http.MethodGet, "/api/v1/results", ""))
	require.Len(t, results, 1)
	rec = do(t, e, http.MethodGet, "/api/v1/results/"+results[0].ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodGet, "/api/v1/results/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stats := decode[models.ResultStats](t, do(t, e, http.MethodGet, "/api/v1/results/stats", ""))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 100.0, stats.SuccessRate)
}

func TestFlows_SaveSearchOpen(t *testing.T) {
	e, svc := newTestServer(t, nil)
	svc.LoadGraph(services.SampleGraph())

	rec := do(t, e, http.MethodPost, "/api/v1/flows", `{"name":"Login Flow Test"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	flow := decode[models.Flow](t, rec)
	assert.Equal(t, "tester@example.com", flow.CreatedBy)
	assert.Len(t, flow.Graph.Nodes, 3)

	do(t, e, http.MethodPost, "/api/v1/flows", `{"name":"Checkout"}`)

	flows := decode[[]models.Flow](t, do(t, e, http.MethodGet, "/api/v1/flows?q=login", ""))
	require.Len(t, flows, 1)
	assert.Equal(t, flow.ID, flows[0].ID)

	svc.LoadGraph(models.Graph{})
	rec = do(t, e, http.MethodPost, "/api/v1/flows/"+flow.ID+"/open", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[MutationResponse](t, rec).Graph.Nodes, 3)

	rec = do(t, e, http.MethodGet, "/api/v1/flows/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, e, http.MethodPost, "/api/v1/flows/missing/open", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocs(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte("issuer: {oktaIssuer}\n"), 0o600))
	cfg := DocsConfig{SpecPath: specPath, OktaIssuer: "https://id.example.com", ClientID: "swagger", Scopes: []string{"openid", "flows:read"}}

	e := echo.New()
	e.GET("/openapi.yaml", SpecHandler(cfg))
	e.GET("/docs", SwaggerHandler(cfg))
	e.GET("/docs/oauth2-redirect.html", OAuth2RedirectHandler)

	rec := do(t, e, http.MethodGet, "/openapi.yaml", "")
	assert.Equal(t, "issuer: https://id.example.com\n", rec.Body.String())

	rec = do(t, e, http.MethodGet, "/docs", "")
	assert.Contains(t, rec.Body.String(), `clientId: "swagger"`)
	assert.Contains(t, rec.Body.String(), `scopes: "openid flows:read"`)
	assert.Contains(t, rec.Body.String(), "http://example.com/docs/oauth2-redirect.html")

	rec = do(t, e, http.MethodGet, "/docs/oauth2-redirect.html", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
