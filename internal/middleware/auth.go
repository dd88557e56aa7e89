package middleware

import (
	"net/http"
	"strings"

	"alerta-vecinal/internal/session"
	"alerta-vecinal/pkg/auth"

	"github.com/gin-gonic/gin"
)

const sessionCookie = "av_session"

// AuthMiddleware проверяет сессионную куку шлюза (или Bearer-заголовок для
// не-браузерных клиентов) и сверяет её с живой сессией: после logout
// подписанная кука ничего не стоит.
func AuthMiddleware(jwtManager *auth.JWTManager, store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid session",
			})
			c.Abort()
			return
		}

		// Кука переживает logout, сессия — нет
		current := store.CurrentUser()
		if current == nil || current.ID != claims.UserID {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Session expired",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// SessionCookieName отдаёт имя куки хендлерам входа/выхода.
func SessionCookieName() string {
	return sessionCookie
}
