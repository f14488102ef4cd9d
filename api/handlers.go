package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/property_backend/attachments"
	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/propertysync"
	"github.com/mmdatafocus/property_backend/syncstatus"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/sirupsen/logrus"
)

// Handler serves the property sync HTTP API.
type Handler struct {
	properties  *propertysync.Orchestrator
	attachments *attachments.Service
	tracker     *syncstatus.Tracker
	logger      *logrus.Logger
}

func NewHandler(properties *propertysync.Orchestrator, attachmentSvc *attachments.Service, tracker *syncstatus.Tracker) *Handler {
	return &Handler{
		properties:  properties,
		attachments: attachmentSvc,
		tracker:     tracker,
		logger:      config.GetLogger(),
	}
}

func (h *Handler) CreatePropertyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req propertysync.CreatePropertyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, "CreateProperty", bindError(err))
			return
		}
		result, err := h.properties.CreateProperty(c.Request.Context(), req)
		if err != nil {
			h.respondError(c, "CreateProperty", err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func (h *Handler) ResyncPropertyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.properties.ResyncProperty(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.respondError(c, "ResyncProperty", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) UploadAttachmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid attachment", "fields": gin.H{"file": "required"}})
			return
		}
		if fh.Size > attachments.MaxUploadSizeBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, attachments.MaxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}

		orgId, _ := utils.GetOrgIdFromContext(c.Request.Context())
		in := attachments.Attachment{
			OrgId:      orgId,
			EntityType: models.EntityType(strings.TrimSpace(c.PostForm("entityType"))),
			EntityId:   strings.TrimSpace(c.PostForm("entityId")),
			FileName:   fh.Filename,
			MimeType:   fh.Header.Get("Content-Type"),
			Title:      c.PostForm("title"),
			Category:   strings.TrimSpace(c.PostForm("category")),
			Vendor:     strings.TrimSpace(c.PostForm("vendor")),
			IsPrivate:  formBool(c.PostForm("isPrivate"), false),
			Data:       data,
			SyncRemote: formBool(c.PostForm("syncToRemote"), true),
		}
		result, err := h.attachments.UploadAttachment(c.Request.Context(), in)
		if err != nil {
			h.respondError(c, "UploadAttachment", err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func (h *Handler) ResyncFileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.attachments.Resync(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.respondError(c, "ResyncFile", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) SyncStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entityType := models.SyncEntityType(c.Param("entityType"))
		if !entityType.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type"})
			return
		}
		status, err := h.tracker.Get(c.Request.Context(), entityType, c.Param("entityId"))
		if err != nil {
			h.respondError(c, "SyncStatus", err)
			return
		}
		if status == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no sync status"})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func (h *Handler) ListSyncStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := syncstatus.ListFilter{
			Status:     models.SyncStatusType(strings.TrimSpace(c.Query("status"))),
			EntityType: models.SyncEntityType(strings.TrimSpace(c.Query("entityType"))),
		}
		if filter.Status != "" && !filter.Status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		if filter.EntityType != "" && !filter.EntityType.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type"})
			return
		}
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			filter.Limit = n
		}
		rows, err := h.tracker.List(c.Request.Context(), filter)
		if err != nil {
			h.respondError(c, "ListSyncStatus", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
	}
}

// respondError maps local failures to status codes. Remote failures never
// reach here; they travel as warnings on a successful response.
func (h *Handler) respondError(c *gin.Context, funcName string, err error) {
	var verr *utils.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Message, "fields": verr.Fields})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, propertysync.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(h.logger, "api", funcName, "request failed", map[string]string{"correlation_id": cid, "path": c.Request.URL.Path}, err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// bindError reports a request body that could not be decoded as a
// validation failure, keyed by the offending json field where known.
func bindError(err error) *utils.ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return utils.NewValidationError("invalid request", map[string]string{field: "expected " + typeErr.Type.String()})
	}
	if fields := utils.ProcessValidationErrors(err); len(fields) > 0 {
		return utils.NewValidationError("invalid request", fields)
	}
	return utils.NewValidationError("invalid request", map[string]string{"body": "malformed json"})
}

func formBool(v string, def bool) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
