// README: Earnings handlers for period summaries and history.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riderhub/internal/http/middleware"
	"riderhub/internal/modules/earnings"
	"riderhub/internal/modules/session"
)

type EarningsHandler struct {
	sessions *session.Service
}

func NewEarningsHandler(svc *session.Service) *EarningsHandler {
	return &EarningsHandler{sessions: svc}
}

func (h *EarningsHandler) Summary(c *gin.Context) {
	p, err := earnings.ParsePeriod(c.Query("period"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	sum, err := h.sessions.Earnings(c.Request.Context(), middleware.DriverID(c), p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sum)
}

func (h *EarningsHandler) History(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid limit")
		return
	}
	recs, err := h.sessions.History(c.Request.Context(), middleware.DriverID(c), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"records": recs})
}
