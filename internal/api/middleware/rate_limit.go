package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/pkg/ratelimiter"
)

// RateLimit limita a captura pública de leads por IP de origem. O
// limiter indisponível libera a passagem: num estande, perder lead é
// pior do que aceitar rajada.
func RateLimit(limiter ratelimiter.Limiter, log *zap.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := GetClientIP(c)

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limit: erro ao consultar limiter", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
		if !decision.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(decision.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "limite de requisições excedido",
			})
			return
		}

		c.Next()
	}
}
