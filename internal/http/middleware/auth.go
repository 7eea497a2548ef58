// README: Driver path middleware; validates :id and exposes it to handlers.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riderhub/internal/types"
)

const driverIDKey = "driver_id"

// Driver rejects requests whose :id segment is not a usable driver id.
// Authentication itself happens upstream of this service.
func Driver(valid func(string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !valid(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid driver id"})
			return
		}
		c.Set(driverIDKey, types.ID(id))
		c.Next()
	}
}

// DriverID returns the id stored by Driver, or "" outside a driver route.
func DriverID(c *gin.Context) types.ID {
	v, ok := c.Get(driverIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(types.ID)
	return id
}
