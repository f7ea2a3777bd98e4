package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/moyoez/wx-station-go/tool"
)

// RateLimit rejects requests beyond the limiter's budget.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			tool.DefaultLogger.Warnf("[Web] Rate limit hit: %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, tool.FastReturnError("too many requests"))
			return
		}
		c.Next()
	}
}
