package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Identity resolves the calling employee from the X-Employee-ID header the
// API gateway injects after authenticating the session. Session management
// itself lives in the gateway, not here.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-Employee-ID")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing employee identity"})
			return
		}

		employeeID, err := strconv.Atoi(header)
		if err != nil || employeeID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid employee identity"})
			return
		}

		c.Set("employeeID", employeeID)
		c.Next()
	}
}
