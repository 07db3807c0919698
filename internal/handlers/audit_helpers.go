package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func employeeIDFromContext(c *gin.Context) *int64 {
	if val, ok := c.Get("employeeID"); ok {
		switch employeeID := val.(type) {
		case int:
			if employeeID != 0 {
				value := int64(employeeID)
				return &value
			}
		case int64:
			if employeeID != 0 {
				value := employeeID
				return &value
			}
		}
	}

	if header := c.GetHeader("X-Employee-ID"); header != "" {
		if parsed, err := strconv.ParseInt(header, 10, 64); err == nil {
			return &parsed
		}
	}

	return nil
}
