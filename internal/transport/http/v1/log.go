package v1

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/harness/internal/logging"
)

// FrontendLog appends a frontend log line to the frontend log file.
// POST /log
func (h *Handler) FrontendLog(c echo.Context) error {
	var entry logging.FrontendEntry
	if err := c.Bind(&entry); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if h.sink == nil {
		return failure(c, http.StatusServiceUnavailable, "frontend logging is disabled")
	}
	if err := h.sink.Write(entry); err != nil {
		log.Printf("ERROR: Failed to write frontend log: %v", err)
		return failure(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
