package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS sets CORS headers for allowedOrigin. An empty origin disables the
// headers; "*" allows any origin. Preflight requests are answered here.
func CORS(allowedOrigin string) gin.HandlerFunc {
	origin := strings.TrimSpace(allowedOrigin)

	return func(c *gin.Context) {
		switch {
		case origin == "":
		case origin == "*":
			c.Header("Access-Control-Allow-Origin", "*")
			setCommonHeaders(c)
		default:
			requestOrigin := c.GetHeader("Origin")
			if requestOrigin != "" && strings.EqualFold(requestOrigin, origin) {
				c.Header("Access-Control-Allow-Origin", requestOrigin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Credentials", "true")
				setCommonHeaders(c)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func setCommonHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
	c.Header("Access-Control-Max-Age", "3600")
}
