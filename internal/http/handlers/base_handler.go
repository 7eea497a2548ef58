// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"riderhub/internal/modules/delivery"
	"riderhub/internal/modules/earnings"
	"riderhub/internal/modules/offer"
	"riderhub/internal/modules/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

// ValidID accepts uuids and short slugs: letters, digits, '-' and '_', at most 64 chars.
func ValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrBadRequest), errors.Is(err, earnings.ErrInvalidPeriod):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, offer.ErrNotFound),
		errors.Is(err, session.ErrNoActiveDelivery),
		errors.Is(err, session.ErrUnknownDelivery):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, delivery.ErrInvalidTransition),
		errors.Is(err, session.ErrDeliveryInProgress),
		errors.Is(err, session.ErrDriverOffline),
		errors.Is(err, offer.ErrDuplicate):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, delivery.ErrMissingProof),
		errors.Is(err, delivery.ErrInvalidCode),
		errors.Is(err, offer.ErrInvalidOffer):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
