package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/mobilitykit/logger"
)

// HeaderRequestID carries the request id.
const HeaderRequestID = "X-Request-Id"

// RequestID reuses or creates an X-Request-Id and stores it on the request
// context for logger.WithContext.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(logger.FieldRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(logger.ContextWithValue(c.Request.Context(), logger.FieldRequestID, id))
		c.Next()
	}
}
