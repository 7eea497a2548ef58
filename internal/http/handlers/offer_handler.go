// README: Offer handlers for listing, accept, decline and feed injection.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"riderhub/internal/config"
	"riderhub/internal/http/middleware"
	"riderhub/internal/modules/offer"
	"riderhub/internal/modules/session"
	"riderhub/internal/types"
)

type OfferHandler struct {
	sessions *session.Service
	pool     *offer.Pool
	live     offer.LiveSource
	criteria offer.Criteria
	currency string
}

func NewOfferHandler(svc *session.Service, pool *offer.Pool, live offer.LiveSource, cfg config.OffersConfig, currency string) *OfferHandler {
	c := offer.DefaultCriteria()
	if cfg.HighPayMin > 0 {
		c.HighPayMin = cfg.HighPayMin
	}
	if cfg.NearbyMaxKm > 0 {
		c.NearbyMaxKm = cfg.NearbyMaxKm
	}
	if cfg.UrgentWithin > 0 {
		c.UrgentWithin = cfg.UrgentWithin
	}
	return &OfferHandler{sessions: svc, pool: pool, live: live, criteria: c, currency: currency}
}

// Live lists every open offer, including those held by other replicas when the
// Redis mirror is configured.
func (h *OfferHandler) Live(c *gin.Context) {
	offers, err := h.live.Live(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"offers": offers, "count": len(offers)})
}

func (h *OfferHandler) List(c *gin.Context) {
	filter, err := offer.ParseFilter(c.Query("filter"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	sortKey, err := offer.ParseSort(c.Query("sort"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	crit := h.criteria
	crit.Filter = filter
	crit.Sort = sortKey
	writeJSON(c, http.StatusOK, map[string]any{"offers": h.sessions.Offers(crit)})
}

func (h *OfferHandler) Accept(c *gin.Context) {
	offerID := c.Param("offer_id")
	if !ValidID(offerID) {
		writeError(c, http.StatusBadRequest, "invalid offer id")
		return
	}
	d, err := h.sessions.Accept(c.Request.Context(), session.AcceptCommand{
		DriverID: middleware.DriverID(c),
		OfferID:  types.ID(offerID),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *OfferHandler) Decline(c *gin.Context) {
	offerID := c.Param("offer_id")
	if !ValidID(offerID) {
		writeError(c, http.StatusBadRequest, "invalid offer id")
		return
	}
	err := h.sessions.Decline(c.Request.Context(), session.DeclineCommand{
		DriverID: middleware.DriverID(c),
		OfferID:  types.ID(offerID),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": offer.RemovedDeclined})
}

// Create lets an external producer push an offer into the pool.
func (h *OfferHandler) Create(c *gin.Context) {
	var o offer.Offer
	if err := c.ShouldBindJSON(&o); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if o.ID == "" {
		o.ID = types.ID(uuid.NewString())
	} else if !ValidID(string(o.ID)) {
		writeError(c, http.StatusBadRequest, "invalid offer id")
		return
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	for _, m := range []*types.Money{&o.EstimatedEarning, &o.OrderValue, &o.Tips} {
		if m.Currency == "" {
			m.Currency = h.currency
		}
	}
	if err := h.pool.Insert(o); err != nil {
		if errors.Is(err, offer.ErrDuplicate) {
			// already live; re-sending an offer is a no-op
			writeJSON(c, http.StatusOK, map[string]any{"offer_id": o.ID})
			return
		}
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"offer_id": o.ID})
}
