package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
	"github.com/lgcert/indigene-certificate/logger"
)

// RequestLogger writes one structured line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		evt := log.Zerolog().Info()
		if c.Writer.Status() >= 500 {
			evt = log.Zerolog().Error()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", httpctx.ClientIP(c)).
			Uint("user_id", httpctx.UserID(c)).
			Msg("request")
	}
}
