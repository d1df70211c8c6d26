package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenValidator confere o token de sessão e devolve o sujeito.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Auth protege as rotas do operador. O formulário público de captura
// não passa por aqui.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token ausente"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		subject, err := validator.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token inválido"})
			return
		}

		c.Set("operator", subject)
		c.Next()
	}
}
