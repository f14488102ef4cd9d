package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/stretchr/testify/assert"
)

func echoOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"orgId": orgId, "cid": cid})
	}
}

func TestOrgAndCorrelationMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationMiddleware(), SessionMiddleware(), OrgMiddleware())
	r.GET("/", echoOrg())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("x-org-id", " org-9 ")
	req.Header.Set("x-correlation-id", "cid-1")
	// no redis configured, so the token is ignored
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orgId":"org-9","cid":"cid-1"}`, w.Body.String())
	assert.Equal(t, "cid-1", w.Header().Get("x-correlation-id"))
}

func TestCorrelationMiddleware_GeneratesId(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationMiddleware())
	r.GET("/", echoOrg())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get("x-correlation-id"), 36)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", tokenFromRequest(req))
	req.Header.Set("Authorization", "bearer xyz")
	assert.Equal(t, "xyz", tokenFromRequest(req))
	req.Header.Set("token", "t1")
	assert.Equal(t, "t1", tokenFromRequest(req))
}
