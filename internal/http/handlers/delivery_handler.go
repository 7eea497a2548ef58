// README: Active delivery handlers (arrivals, photos, pickup, completion, cancel).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riderhub/internal/http/middleware"
	"riderhub/internal/modules/session"
	"riderhub/internal/types"
)

type DeliveryHandler struct {
	sessions *session.Service
}

func NewDeliveryHandler(svc *session.Service) *DeliveryHandler {
	return &DeliveryHandler{sessions: svc}
}

type photoReq struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
}

type completeReq struct {
	Code           string `json:"code"`
	PhotoRef       string `json:"photo_ref"`
	CustomerRating *int   `json:"customer_rating"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *DeliveryHandler) Get(c *gin.Context) {
	d, err := h.sessions.Active(c.Request.Context(), middleware.DriverID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DeliveryHandler) Timeline(c *gin.Context) {
	orderID := c.Param("order_id")
	if !ValidID(orderID) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	evs, err := h.sessions.Timeline(c.Request.Context(), middleware.DriverID(c), types.ID(orderID))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"order_id": orderID, "events": evs})
}

func (h *DeliveryHandler) ArriveAtPickup(c *gin.Context) {
	d, err := h.sessions.ArriveAtPickup(c.Request.Context(), middleware.DriverID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DeliveryHandler) AttachPhoto(c *gin.Context) {
	var req photoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.sessions.AttachPhoto(c.Request.Context(), session.AttachPhotoCommand{
		DriverID: middleware.DriverID(c),
		Kind:     session.PhotoKind(req.Kind),
		Ref:      req.Ref,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DeliveryHandler) ConfirmPickup(c *gin.Context) {
	d, err := h.sessions.ConfirmPickup(c.Request.Context(), middleware.DriverID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DeliveryHandler) ArriveAtDropoff(c *gin.Context) {
	d, err := h.sessions.ArriveAtDropoff(c.Request.Context(), middleware.DriverID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *DeliveryHandler) Complete(c *gin.Context) {
	var req completeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Code == "" {
		writeError(c, http.StatusBadRequest, "missing code")
		return
	}
	res, err := h.sessions.Complete(c.Request.Context(), session.CompleteCommand{
		DriverID:       middleware.DriverID(c),
		Code:           req.Code,
		PhotoRef:       req.PhotoRef,
		CustomerRating: req.CustomerRating,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *DeliveryHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	res, err := h.sessions.Cancel(c.Request.Context(), session.CancelCommand{
		DriverID: middleware.DriverID(c),
		Reason:   req.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}
