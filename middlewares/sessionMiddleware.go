package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/possync_backend/models"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the token header to a redis session and loads
// tenant/user identity into the request context. Terminal identity headers
// ride along so the apply engine can stamp provenance.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token header is required"})
			return
		}

		session, err := models.GetSession(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.SetTenantIdInContext(ctx, session.TenantId)
		ctx = utils.SetUsernameInContext(ctx, session.Username)
		ctx = utils.SetUserIdInContext(ctx, session.UserId)
		if session.Role == models.UserRoleAdmin {
			ctx = utils.SetIsAdminInContext(ctx, true)
		}
		if terminalId := c.GetHeader("X-Terminal-Id"); terminalId != "" {
			ctx = utils.SetTerminalIdInContext(ctx, terminalId)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
