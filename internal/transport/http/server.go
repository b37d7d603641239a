// Package http provides the HTTP server for the harness: the test session
// API, the frontend log endpoint and the operator WebSocket route.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/gogo/harness/internal/logging"
	"github.com/xiaot623/gogo/harness/internal/service"
	v1 "github.com/xiaot623/gogo/harness/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. wsHandler serves the
// operator channel at /ws.
func NewServer(svc *service.Service, conns v1.ConnectionCounter, sink *logging.FrontendSink, wsHandler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1Handler := v1.NewHandler(svc, conns, sink)
	v1Handler.RegisterRoutes(e)

	if wsHandler != nil {
		e.GET("/ws", wsHandler)
	}

	return e
}
