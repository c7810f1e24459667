// Package api contains the HTTP handlers for the test-flow builder.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"flowbuilder/backend/internal/logging"
	"flowbuilder/backend/internal/services"
	"flowbuilder/backend/pkg/models"
)

const (
	serviceName    = "flowbuilder"
	serviceVersion = "1.0.0"
)

// Handler implements ServerInterface on top of a BuilderService.
type Handler struct {
	svc    *services.BuilderService
	logger *logging.Logger
}

var _ ServerInterface = (*Handler)(nil)

// NewHandler creates a new Handler with required dependencies.
func NewHandler(svc *services.BuilderService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// HandleHealth reports liveness and the store check. It always answers 200;
// a failed check shows up as status "degraded".
func (h *Handler) HandleHealth(c echo.Context) error {
	status := models.HealthStatus{
		Status:    "ok",
		Service:   serviceName,
		Version:   serviceVersion,
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{"store": "ok"},
	}
	if err := h.svc.Ping(c.Request().Context()); err != nil {
		status.Status = "degraded"
		status.Checks["store"] = err.Error()
	}
	if h.svc.Running() {
		status.Checks["runner"] = "run in progress"
	}
	return c.JSON(http.StatusOK, status)
}

// ProblemErrorHandler renders every error as RFC 7807 Problem Details.
func ProblemErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		detail := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				detail = msg
			} else if he.Internal != nil {
				detail = he.Internal.Error()
			} else {
				detail = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError && logger != nil {
			logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		}

		problem := models.ProblemDetails{
			Type:     "about:blank",
			Title:    http.StatusText(code),
			Status:   code,
			Detail:   detail,
			Instance: c.Request().URL.Path,
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
		c.Response().WriteHeader(code)
		_ = c.Echo().JSONSerializer.Serialize(c, problem, "")
	}
}
