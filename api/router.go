package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/property_backend/middlewares"
	"github.com/sirupsen/logrus"
)

func NewRouter(h *Handler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Use(cors.New(corsConfig()))
	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.OrgMiddleware())
	r.Use(middlewares.RequestLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/api/properties", h.CreatePropertyHandler())
	r.POST("/api/properties/:id/sync", h.ResyncPropertyHandler())
	r.POST("/api/attachments", h.UploadAttachmentHandler())
	r.POST("/api/files/:id/resync", h.ResyncFileHandler())
	r.GET("/api/sync-status", h.ListSyncStatusHandler())
	r.GET("/api/sync-status/:entityType/:entityId", h.SyncStatusHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			cfg.AllowOriginFunc = func(string) bool { return false }
		} else {
			cfg.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	cfg.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-org-id", "x-correlation-id")
	cfg.AddExposeHeaders("Content-Length", "x-correlation-id")
	cfg.AllowCredentials = !cfg.AllowAllOrigins
	return cfg
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
