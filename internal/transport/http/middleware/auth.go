package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/session"
)

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func abortAuth(c *gin.Context, code, message string) {
	var body envelope
	body.Error.Message = message
	body.Error.Code = code
	c.AbortWithStatusJSON(http.StatusUnauthorized, body)
}

// AuthMiddleware validates the bearer token, checks the session is still
// live, and stashes the caller's identity in the gin context.
//
// Expired or revoked credentials always come back as 401 with code
// AUTH_EXPIRED so clients know a token refresh is worth attempting.
func AuthMiddleware(authService *session.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortAuth(c, domain.CodeAuthRequired, "Authorization header required")
			return
		}

		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			abortAuth(c, domain.CodeAuthRequired, "Bearer token required")
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			abortAuth(c, domain.CodeAuthExpired, "Access token invalid or expired")
			return
		}

		sess, err := authService.GetSession(claims.SessionID)
		if err != nil || sess == nil || !sess.IsActive {
			abortAuth(c, domain.CodeAuthExpired, "Session no longer active")
			return
		}
		if time.Now().After(sess.ExpiresAt) {
			abortAuth(c, domain.CodeAuthExpired, "Session expired")
			return
		}

		// Best-effort, never blocks the request
		go authService.UpdateSessionActivity(claims.SessionID)

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("session_id", claims.SessionID)
		c.Next()
	}
}
