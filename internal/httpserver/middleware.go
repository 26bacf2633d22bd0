package httpserver

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Trimbex/distributed-web-crawler/internal/logging"
)

const requestIDByteLen = 16

// LoggerMiddleware logs one structured line per request.
func LoggerMiddleware(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		fields := []logging.Field{
			logging.String("method", method),
			logging.String("path", path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(start)),
			logging.String("client_ip", c.ClientIP()),
		}
		if reqID, exists := c.Get("request_id"); exists {
			if id, ok := reqID.(string); ok {
				fields = append(fields, logging.String("request_id", id))
			}
		}

		if len(c.Errors) > 0 {
			log.Error("http request with errors", append(fields, logging.String("errors", c.Errors.String()))...)
			return
		}
		log.Info("http request", fields...)
	}
}

// RequestIDMiddleware assigns a request ID, taken from X-Request-ID or
// generated, and echoes it back in the response header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = generateRequestID()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// RecoveryMiddleware converts a panic into a logged 500 response instead of
// killing the process.
func RecoveryMiddleware(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					logging.Any("error", r),
					logging.String("path", c.Request.URL.Path),
					logging.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

func generateRequestID() string {
	b := make([]byte, requestIDByteLen)
	if _, err := rand.Read(b); err != nil {
		now := time.Now().UnixNano()
		for i := requestIDByteLen - 1; i >= 0; i-- {
			b[i] = byte(now)
			now >>= 8
		}
	}
	return hex.EncodeToString(b)
}
