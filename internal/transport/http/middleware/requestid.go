package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/p3tuh/notello/internal/requestid"
)

const requestIDHeader = "X-Request-ID"

// RequestID puts a request ID on the context and the response. A
// well-formed inbound X-Request-ID is kept, anything else is replaced.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if !requestid.Accept(id) {
			id = requestid.New()
		}

		c.Request = c.Request.WithContext(requestid.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
