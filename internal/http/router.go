// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riderhub/internal/http/handlers"
	"riderhub/internal/http/middleware"
	"riderhub/internal/modules/offer"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	var live offer.LiveSource = deps.Pool
	if deps.Live != nil {
		live = deps.Live
	}
	offerHandler := handlers.NewOfferHandler(deps.Sessions, deps.Pool, live, deps.Offers, deps.Currency)
	driverHandler := handlers.NewDriverHandler(deps.Sessions)
	deliveryHandler := handlers.NewDeliveryHandler(deps.Sessions)
	earningsHandler := handlers.NewEarningsHandler(deps.Sessions)

	api := r.Group("/api")
	api.POST("/offers", offerHandler.Create)
	api.GET("/offers/live", offerHandler.Live)

	drivers := api.Group("/drivers/:id", middleware.Driver(handlers.ValidID))
	drivers.GET("", driverHandler.Status)
	drivers.POST("/online", driverHandler.Online)
	drivers.POST("/offline", driverHandler.Offline)
	drivers.POST("/verification/ack", driverHandler.AckVerification)

	drivers.GET("/offers", offerHandler.List)
	drivers.POST("/offers/:offer_id/accept", offerHandler.Accept)
	drivers.POST("/offers/:offer_id/decline", offerHandler.Decline)

	drivers.GET("/delivery", deliveryHandler.Get)
	drivers.POST("/delivery/arrive_pickup", deliveryHandler.ArriveAtPickup)
	drivers.POST("/delivery/photos", deliveryHandler.AttachPhoto)
	drivers.POST("/delivery/confirm_pickup", deliveryHandler.ConfirmPickup)
	drivers.POST("/delivery/arrive_dropoff", deliveryHandler.ArriveAtDropoff)
	drivers.POST("/delivery/complete", deliveryHandler.Complete)
	drivers.POST("/delivery/cancel", deliveryHandler.Cancel)

	drivers.GET("/deliveries/:order_id/events", deliveryHandler.Timeline)

	drivers.GET("/earnings", earningsHandler.Summary)
	drivers.GET("/earnings/history", earningsHandler.History)

	return r
}
