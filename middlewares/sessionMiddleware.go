package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/utils"
)

// Session is what the login service caches under "Session:<token>".
type Session struct {
	Username string `json:"username"`
	OrgId    string `json:"orgId"`
}

// SessionMiddleware resolves the token header to a cached session. Requests
// without a token pass through; an unknown token is rejected. With Redis not
// configured tokens are ignored.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c.Request)
		if token == "" || config.GetRedisDB() == nil {
			c.Next()
			return
		}
		var session Session
		exists, err := config.GetRedisObject(c.Request.Context(), "Session:"+token, &session)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetUsernameInContext(c.Request.Context(), session.Username)
		if session.OrgId != "" {
			ctx = utils.SetOrgIdInContext(ctx, session.OrgId)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OrgMiddleware puts the x-org-id header into the request context unless a
// session already set the org.
func OrgMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetOrgIdFromContext(c.Request.Context()); !ok {
			if orgId := strings.TrimSpace(c.GetHeader("x-org-id")); orgId != "" {
				c.Request = c.Request.WithContext(utils.SetOrgIdInContext(c.Request.Context(), orgId))
			}
		}
		c.Next()
	}
}

func tokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("token")); token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
