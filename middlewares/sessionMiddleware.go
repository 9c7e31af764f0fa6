package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/returns_backend/appctx"
	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/utils"
)

// bearerToken reads the `token` header, falling back to Authorization: Bearer.
func bearerToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("token")); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	const bearer = "Bearer "
	if len(auth) > len(bearer) && strings.EqualFold(auth[:len(bearer)], bearer) {
		return strings.TrimSpace(auth[len(bearer):])
	}
	return ""
}

// SessionMiddleware puts the caller's Session into the request context.
// Requests without a token pass through; invalid, revoked or orphaned tokens are rejected.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			c.Next()
			return
		}
		claims, err := utils.JwtValidate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		revoked, err := models.IsTokenRevoked(claims.Id)
		if err != nil {
			config.LogError(config.GetLogger(), "sessionMiddleware.go", "SessionMiddleware", "IsTokenRevoked", claims.AccountId, err)
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session ended"})
			return
		}

		account, err := models.GetAccountCached(c.Request.Context(), claims.AccountId)
		if err != nil {
			if err == models.ErrRecordNotFound {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session ended"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}

		session := &appctx.Session{
			Token:     token,
			TokenId:   claims.Id,
			AccountId: account.ID,
			LoginId:   account.LoginId,
			Name:      account.Name,
			Role:      string(account.Role),
			StoreCode: account.StoreCodeValue(),
			ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC(),
		}
		c.Request = c.Request.WithContext(utils.SetSessionInContext(c.Request.Context(), session))
		c.Next()
	}
}
