package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/mmdatafocus/property_backend/blobstore"
	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/resolver"
	"github.com/mmdatafocus/property_backend/syncstatus"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	MaxUploadSizeBytes int64 = 25 * 1024 * 1024
	thumbnailWidth           = 200
)

// Attachment is an uploaded file headed for a local entity.
type Attachment struct {
	OrgId      string
	EntityType models.EntityType
	EntityId   string
	FileName   string
	MimeType   string
	Title      string
	Category   string
	// Vendor applies to bill attachments only; blank falls back to the
	// bill's own vendor.
	Vendor     string
	IsPrivate  bool
	Data       []byte
	SyncRemote bool
}

type Result struct {
	FileRecord   *models.FileRecord   `json:"fileRecord"`
	RemoteFileId *int64               `json:"remoteFileId"`
	SyncError    *string              `json:"syncError"`
	Warnings     []models.SyncWarning `json:"warnings,omitempty"`
}

func (r *Result) warn(fileId, message string) {
	r.Warnings = append(r.Warnings, models.SyncWarning{EntityType: string(models.SyncEntityFile), EntityId: fileId, Message: message})
}

// Service stores attachments locally and mirrors them through the ticket
// handler. A nil ticket handler keeps everything local.
type Service struct {
	writer   *datastore.Writer
	blobs    blobstore.Store
	tickets  *TicketHandler
	resolver *resolver.Resolver
	tracker  *syncstatus.Tracker
	logger   *logrus.Logger
	now      func() time.Time
}

func NewService(writer *datastore.Writer, blobs blobstore.Store, tickets *TicketHandler, res *resolver.Resolver, tracker *syncstatus.Tracker) *Service {
	return &Service{
		writer:   writer,
		blobs:    blobs,
		tickets:  tickets,
		resolver: res,
		tracker:  tracker,
		logger:   config.GetLogger(),
		now:      time.Now,
	}
}

// UploadAttachment persists the file and, when asked, pushes it to the
// remote system. Remote problems land in SyncError and Warnings; only local
// failures are returned as errors.
func (s *Service) UploadAttachment(ctx context.Context, in Attachment) (*Result, error) {
	binding, ok := models.BindingFor(in.EntityType)
	if !ok {
		return nil, utils.NewValidationError("invalid attachment", map[string]string{"entityType": "oneof"})
	}
	fields := map[string]string{}
	if strings.TrimSpace(in.EntityId) == "" {
		fields["entityId"] = "required"
	}
	if len(in.Data) == 0 {
		fields["file"] = "required"
	} else if int64(len(in.Data)) > MaxUploadSizeBytes {
		fields["file"] = "max"
	}
	if len(fields) > 0 {
		return nil, utils.NewValidationError("invalid attachment", fields)
	}

	store := s.writer.Store()
	entity, err := store.Get(ctx, binding.Table, in.EntityId)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", in.EntityType, in.EntityId, utils.ErrorRecordNotFound)
	}
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "load entity", Err: err}
	}
	orgId := utils.FirstNonEmpty(in.OrgId, utils.AsString(entity["org_id"]))

	fileName := utils.SanitizeFileName(in.FileName)
	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	key := storageKey(in.EntityType, in.EntityId, fileName, s.now())
	if err := s.blobs.Put(ctx, key, mimeType, in.Data); err != nil {
		return nil, &utils.LocalPersistenceError{Step: "store file", Err: err}
	}

	result := &Result{}
	var thumbKey string
	if strings.HasPrefix(mimeType, "image/") {
		if thumbKey, err = s.createThumbnail(ctx, key, in.Data); err != nil {
			result.warn("", "thumbnail not created: "+err.Error())
			thumbKey = ""
		}
	}

	var categoryId *int64
	if in.Category != "" && s.resolver != nil {
		ref, err := s.resolver.ResolveCategory(ctx, orgId, in.Category)
		if err != nil {
			result.warn("", "category not resolved: "+err.Error())
		}
		categoryId = ref.ExternalId
	}

	var vendorId *int64
	if in.EntityType == models.EntityTypeBill && s.resolver != nil {
		vendorId = s.resolveBillVendor(ctx, orgId, in.Vendor, entity, result)
	}

	row := datastore.Row{
		"org_id":           orgId,
		"entity_type":      string(in.EntityType),
		"entity_id":        in.EntityId,
		"file_name":        fileName,
		"title":            utils.FirstNonEmpty(in.Title, fileName),
		"mime_type":        mimeType,
		"size_bytes":       int64(len(in.Data)),
		"storage_provider": s.blobs.Provider(),
		"bucket":           s.blobs.Bucket(),
		"storage_key":      key,
		"thumbnail_key":    thumbKey,
		"is_private":       in.IsPrivate,
	}
	if categoryId != nil {
		row["external_category_id"] = *categoryId
	}
	if vendorId != nil {
		row["external_vendor_id"] = *vendorId
	}
	written, err := s.writer.Insert(ctx, models.TableFiles, row)
	if err != nil {
		s.removeBlobs(ctx, key, thumbKey)
		return nil, &utils.LocalPersistenceError{Step: "insert file record", Err: err}
	}
	fileId := written.Row.ID()
	for _, col := range written.DroppedColumns {
		result.warn(fileId, fmt.Sprintf("column %s not stored", col))
	}

	file, err := decodeFile(written.Row)
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "decode file record", Err: err}
	}
	result.FileRecord = file

	if in.SyncRemote {
		s.syncFile(ctx, file, binding, entity, in.Data, result)
	}
	return result, nil
}

// Resync pushes a stored file to the remote system again, reading its bytes
// back from blob storage. A file already synced is re-uploaded.
func (s *Service) Resync(ctx context.Context, fileId string) (*Result, error) {
	store := s.writer.Store()
	row, err := store.Get(ctx, models.TableFiles, fileId)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, fmt.Errorf("file %s: %w", fileId, utils.ErrorRecordNotFound)
	}
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "load file record", Err: err}
	}
	file, err := decodeFile(row)
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "decode file record", Err: err}
	}
	binding, ok := models.BindingFor(models.EntityType(file.EntityType))
	if !ok {
		return nil, utils.NewValidationError("file has unknown entity type", map[string]string{"entityType": "oneof"})
	}
	entity, err := store.Get(ctx, binding.Table, file.EntityId)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", file.EntityType, file.EntityId, utils.ErrorRecordNotFound)
	}
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "load entity", Err: err}
	}
	data, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "read stored file", Err: err}
	}

	result := &Result{FileRecord: file}
	s.syncFile(utils.SetForceResyncInContext(ctx, true), file, binding, entity, data, result)
	return result, nil
}

// syncFile uploads through the ticket handler and records the outcome on the
// file row and in the sync status table. It never fails the request.
func (s *Service) syncFile(ctx context.Context, file *models.FileRecord, binding models.EntityBinding, entity datastore.Row, data []byte, result *Result) {
	fail := func(msg string) {
		result.SyncError = &msg
		if err := s.tracker.Record(ctx, models.SyncEntityFile, file.ID, nil, models.SyncStatusFailed, msg); err != nil {
			result.warn(file.ID, "sync status not recorded: "+err.Error())
		}
	}
	if s.tickets == nil || !config.RemoteSyncEnabled() {
		result.warn(file.ID, "remote sync disabled")
		return
	}
	if err := s.tracker.Record(ctx, models.SyncEntityFile, file.ID, nil, models.SyncStatusSyncing, ""); err != nil {
		result.warn(file.ID, "sync status not recorded: "+err.Error())
	}

	remoteEntityId, ok := utils.ParseInt64(entity[binding.ExternalIdColumn])
	if !ok || remoteEntityId <= 0 {
		fail(fmt.Sprintf("%s %s has no remote id", file.EntityType, file.EntityId))
		return
	}

	up, err := s.tickets.Upload(ctx, TicketUpload{
		EntityType: binding.RemoteFileEntityType,
		EntityId:   remoteEntityId,
		FileName:   file.FileName,
		MimeType:   file.MimeType,
		Title:      file.Title,
		CategoryId: file.ExternalCategoryId,
		IsPrivate:  file.IsPrivate,
		Data:       data,
	})
	if err != nil {
		config.LogError(s.logger, "attachments", "syncFile", "remote upload", map[string]any{"file_id": file.ID}, err)
		fail(err.Error())
		return
	}

	result.RemoteFileId = up.RemoteFileId
	if up.Warning != "" {
		result.warn(file.ID, up.Warning)
	}
	patch := datastore.Row{"external_entity_type": binding.RemoteFileEntityType, "external_entity_id": remoteEntityId}
	if up.RemoteFileId != nil {
		patch["external_file_id"] = *up.RemoteFileId
	}
	if up.Href != nil {
		patch["external_href"] = *up.Href
	}
	written, err := s.writer.Update(ctx, models.TableFiles, file.ID, patch)
	if err != nil {
		result.warn(file.ID, "remote file id not stored: "+err.Error())
	} else {
		for _, col := range written.DroppedColumns {
			result.warn(file.ID, fmt.Sprintf("column %s not stored", col))
		}
		if updated, err := decodeFile(written.Row); err == nil {
			*file = *updated
		}
	}
	if err := s.tracker.Record(ctx, models.SyncEntityFile, file.ID, up.RemoteFileId, models.SyncStatusSynced, ""); err != nil {
		result.warn(file.ID, "sync status not recorded: "+err.Error())
	}
}

// resolveBillVendor resolves the vendor named on the upload, or else the one
// the bill points at, to its remote id.
func (s *Service) resolveBillVendor(ctx context.Context, orgId, ref string, bill datastore.Row, result *Result) *int64 {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		vendorRowId := utils.AsString(bill["vendor_id"])
		if vendorRowId == "" {
			return nil
		}
		vendor, err := s.writer.Store().Get(ctx, models.TableVendors, vendorRowId)
		if err != nil {
			result.warn("", "bill vendor not loaded: "+err.Error())
			return nil
		}
		if id, ok := utils.ParseInt64(vendor["external_vendor_id"]); ok && id > 0 {
			return &id
		}
		ref = utils.AsString(vendor["name"])
	}
	found, err := s.resolver.ResolveVendor(ctx, orgId, ref)
	if err != nil {
		result.warn("", "vendor not resolved: "+err.Error())
		return nil
	}
	if found.ExternalId == nil {
		result.warn("", fmt.Sprintf("vendor %q has no remote id", found.Name))
	}
	return found.ExternalId
}

func (s *Service) createThumbnail(ctx context.Context, objectKey string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}
	thumbKey := thumbnailObjectKey(objectKey)
	if err := s.blobs.Put(ctx, thumbKey, "image/jpeg", buf.Bytes()); err != nil {
		return "", err
	}
	return thumbKey, nil
}

func (s *Service) removeBlobs(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			config.LogError(s.logger, "attachments", "removeBlobs", "cleanup after failed insert", key, err)
		}
	}
}

func storageKey(entityType models.EntityType, entityId, fileName string, now time.Time) string {
	return path.Join(string(entityType), entityId, fmt.Sprintf("%d-%s", now.UnixNano(), fileName))
}

func thumbnailObjectKey(objectKey string) string {
	return path.Join(path.Dir(objectKey), "thumbnails", path.Base(objectKey))
}

func decodeFile(row datastore.Row) (*models.FileRecord, error) {
	var f models.FileRecord
	if err := utils.DecodeRow(row, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
