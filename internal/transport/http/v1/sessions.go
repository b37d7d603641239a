package v1

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/harness/internal/domain"
	"github.com/xiaot623/gogo/harness/internal/service"
)

// ListSessions lists stored sessions, newest first.
// GET /api/test-sessions?limit=50&offset=0
func (h *Handler) ListSessions(c echo.Context) error {
	limit, err := intParam(c, "limit", service.DefaultListLimit)
	if err != nil {
		return failure(c, http.StatusBadRequest, "invalid limit")
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil || offset < 0 {
		return failure(c, http.StatusBadRequest, "invalid offset")
	}

	sessions, hasMore, err := h.service.ListSessions(c.Request().Context(), limit, offset)
	if err != nil {
		log.Printf("ERROR: Failed to list sessions: %v", err)
		return failure(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": sessions,
		"hasMore":  hasMore,
	})
}

// GetSession returns one session.
// GET /api/test-sessions/:id
func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		return failure(c, http.StatusNotFound, "Session not found")
	}
	if err != nil {
		log.Printf("ERROR: Failed to get session: %v", err)
		return failure(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"session": session,
	})
}

// SearchSessions finds sessions containing the query text.
// GET /api/test-sessions/search/:query?limit=10
func (h *Handler) SearchSessions(c echo.Context) error {
	query := c.Param("query")
	if query == "" {
		return failure(c, http.StatusBadRequest, "query is required")
	}
	limit, err := intParam(c, "limit", service.DefaultSearchLimit)
	if err != nil {
		return failure(c, http.StatusBadRequest, "invalid limit")
	}

	sessions, err := h.service.SearchSessions(c.Request().Context(), query, limit)
	if err != nil {
		log.Printf("ERROR: Failed to search sessions: %v", err)
		return failure(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": sessions,
	})
}

// FilterSessions returns sessions matching every field of the body.
// POST /api/test-sessions/filter?limit=50
func (h *Handler) FilterSessions(c echo.Context) error {
	var f domain.SessionFilter
	if err := c.Bind(&f); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	limit, err := intParam(c, "limit", service.DefaultListLimit)
	if err != nil {
		return failure(c, http.StatusBadRequest, "invalid limit")
	}

	sessions, err := h.service.FilterSessions(c.Request().Context(), f, limit)
	if errors.Is(err, service.ErrInvalidFilter) {
		return failure(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		log.Printf("ERROR: Failed to filter sessions: %v", err)
		return failure(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": sessions,
	})
}

// SaveSession stores a session, replacing one with the same ID.
// POST /api/test-sessions
func (h *Handler) SaveSession(c echo.Context) error {
	var session domain.TestSession
	if err := c.Bind(&session); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}

	id, err := h.service.Save(c.Request().Context(), session)
	if err != nil {
		log.Printf("ERROR: Failed to save session: %v", err)
		return failure(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"sessionId": id,
	})
}

// DeleteSession removes a session.
// DELETE /api/test-sessions/:id
func (h *Handler) DeleteSession(c echo.Context) error {
	err := h.service.DeleteSession(c.Request().Context(), c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		return failure(c, http.StatusNotFound, "Session not found")
	}
	if err != nil {
		log.Printf("ERROR: Failed to delete session: %v", err)
		return failure(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// Stats returns the session count and mean score.
// GET /api/test-sessions-stats
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: Failed to get stats: %v", err)
		return failure(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
