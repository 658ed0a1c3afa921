package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
)

// AuditMiddleware extracts and stores IP address for audit logging
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(httpctx.KeyClientIP, clientIP(c))
		c.Next()
	}
}

// clientIP prefers proxy headers, then the socket address.
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}

	for _, header := range []string{"X-Real-Ip", "CF-Connecting-IP"} {
		if v := strings.TrimSpace(c.GetHeader(header)); v != "" && net.ParseIP(v) != nil {
			return v
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
