package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"negaboku/internal/service"
)

// RateLimitMiddleware limita mutaciones por jugador autenticado o, sin token, por IP.
func RateLimitMiddleware(limiter service.MutationRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.ClientIP()
		if claims, ok := GetAuthClaims(c); ok {
			actor = "player:" + claims.PlayerID
		}
		if !limiter.Allow(c.Request.Context(), actor) {
			abortJSON(c, http.StatusTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}
