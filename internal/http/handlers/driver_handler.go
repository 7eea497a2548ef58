// README: Driver handlers for online status and verification acknowledgement.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riderhub/internal/http/middleware"
	"riderhub/internal/modules/session"
)

type DriverHandler struct {
	sessions *session.Service
}

func NewDriverHandler(svc *session.Service) *DriverHandler {
	return &DriverHandler{sessions: svc}
}

func (h *DriverHandler) Status(c *gin.Context) {
	st, err := h.sessions.Status(c.Request.Context(), middleware.DriverID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (h *DriverHandler) Online(c *gin.Context) {
	st, err := h.sessions.GoOnline(c.Request.Context(), middleware.DriverID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (h *DriverHandler) Offline(c *gin.Context) {
	st, err := h.sessions.GoOffline(c.Request.Context(), middleware.DriverID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (h *DriverHandler) AckVerification(c *gin.Context) {
	st, err := h.sessions.AckVerification(c.Request.Context(), middleware.DriverID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}
