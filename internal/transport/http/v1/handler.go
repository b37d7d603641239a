// Package v1 provides HTTP handlers for the test session API.
package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/harness/internal/logging"
	"github.com/xiaot623/gogo/harness/internal/service"
)

// ConnectionCounter reports the number of open operator connections.
type ConnectionCounter interface {
	GetConnectionCount() int
}

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	conns   ConnectionCounter
	sink    *logging.FrontendSink
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, conns ConnectionCounter, sink *logging.FrontendSink) *Handler {
	return &Handler{
		service: service,
		conns:   conns,
		sink:    sink,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Test session API
	e.GET("/api/test-sessions", h.ListSessions)
	e.POST("/api/test-sessions", h.SaveSession)
	e.GET("/api/test-sessions/search/:query", h.SearchSessions)
	e.POST("/api/test-sessions/filter", h.FilterSessions)
	e.GET("/api/test-sessions/:id", h.GetSession)
	e.DELETE("/api/test-sessions/:id", h.DeleteSession)
	e.GET("/api/test-sessions-stats", h.Stats)

	e.POST("/log", h.FrontendLog)
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	active := 0
	if h.conns != nil {
		active = h.conns.GetConnectionCount()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":            "healthy",
		"activeConnections": active,
		"timestamp":         time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func failure(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]interface{}{"success": false, "error": message})
}
