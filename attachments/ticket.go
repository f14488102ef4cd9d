package attachments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/remote"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPollAttempts = 8
	DefaultPollStep     = 500 * time.Millisecond

	WarningIdNotConfirmed = "uploaded but remote id not confirmed"
)

var (
	ErrIncompleteTicket = errors.New("upload ticket missing bucket url or form fields")
	errNotVisibleYet    = errors.New("uploaded file not listed yet")
)

type FilesRemote interface {
	CreateUploadRequest(ctx context.Context, in remote.FileUploadRequest) (*remote.UploadTicket, error)
	ListFiles(ctx context.Context, entityType string, entityId int64) ([]remote.RemoteFile, error)
	UploadToBucket(ctx context.Context, ticket *remote.UploadTicket, fileName, mimeType string, data []byte) error
}

// TicketUpload is one binary headed for a remote entity.
type TicketUpload struct {
	EntityType string
	EntityId   int64
	FileName   string
	MimeType   string
	Title      string
	CategoryId *int64
	IsPrivate  bool
	Data       []byte
}

// TicketResult carries whatever remote id and href could be resolved. A nil
// RemoteFileId comes with Warning set: the bytes reached the bucket but the
// listing never confirmed an id.
type TicketResult struct {
	RemoteFileId *int64
	Href         *string
	Warning      string
}

// TicketHandler runs the two-phase upload: request a ticket, POST the bytes
// straight to the bucket, then poll the entity's file listing for the id.
type TicketHandler struct {
	remote FilesRemote
	poll   utils.RetryPolicy
	logger *logrus.Logger
}

func NewTicketHandler(remoteAPI FilesRemote, attempts int, step time.Duration) *TicketHandler {
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	return &TicketHandler{
		remote: remoteAPI,
		poll: utils.RetryPolicy{
			MaxAttempts: attempts,
			Backoff:     utils.LinearBackoff(step),
		},
		logger: config.GetLogger(),
	}
}

// NewTicketHandlerFromEnv reads UPLOAD_POLL_ATTEMPTS and UPLOAD_POLL_STEP_MS.
func NewTicketHandlerFromEnv(remoteAPI FilesRemote) *TicketHandler {
	return NewTicketHandler(remoteAPI,
		utils.EnvIntDefault("UPLOAD_POLL_ATTEMPTS", DefaultPollAttempts),
		time.Duration(utils.EnvIntDefault("UPLOAD_POLL_STEP_MS", int(DefaultPollStep/time.Millisecond)))*time.Millisecond,
	)
}

func (h *TicketHandler) Upload(ctx context.Context, in TicketUpload) (*TicketResult, error) {
	ticket, err := h.remote.CreateUploadRequest(ctx, remote.FileUploadRequest{
		EntityType: in.EntityType,
		EntityId:   in.EntityId,
		FileName:   truncate(in.FileName, 255),
		Title:      truncate(utils.FirstNonEmpty(in.Title, in.FileName), 255),
		CategoryId: in.CategoryId,
		IsPrivate:  in.IsPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("request upload ticket: %w", err)
	}
	if strings.TrimSpace(ticket.BucketUrl) == "" || len(ticket.FormData) == 0 {
		return nil, ErrIncompleteTicket
	}

	var preAllocated *int64
	if ticket.Id != nil && *ticket.Id > 0 {
		id := int64(*ticket.Id)
		preAllocated = &id
	}

	// The id has to be found by diffing listings when the ticket did not
	// pre-allocate one.
	var before map[int64]bool
	if preAllocated == nil {
		before, err = h.snapshot(ctx, in.EntityType, in.EntityId)
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"module":      "attachments",
				"entity_type": in.EntityType,
				"entity_id":   in.EntityId,
			}).Warn("pre-upload listing failed; id discovery by diff disabled: " + err.Error())
		}
	}

	if err := h.remote.UploadToBucket(ctx, ticket, in.FileName, in.MimeType, in.Data); err != nil {
		return nil, err
	}

	var found *remote.RemoteFile
	pollErr := h.poll.Do(ctx, func(attempt int) error {
		files, err := h.remote.ListFiles(ctx, in.EntityType, in.EntityId)
		if err != nil {
			return err
		}
		if match := matchUploaded(files, preAllocated, before, ticket.PhysicalFileName); match != nil {
			found = match
			return nil
		}
		return errNotVisibleYet
	})

	result := &TicketResult{}
	if pollErr == nil && found != nil {
		id := int64(found.Id)
		result.RemoteFileId = &id
		result.Href = nonEmpty(utils.FirstNonEmpty(found.Href, ticket.Href))
		return result, nil
	}

	fallback, _, _ := utils.FirstResolved[*int64](ctx,
		utils.Static(preAllocated, preAllocated != nil),
		func(context.Context) (*int64, bool, error) {
			id, ok := idFromHref(ticket.Href)
			return &id, ok, nil
		},
	)
	result.RemoteFileId = fallback
	result.Href = nonEmpty(ticket.Href)
	if result.RemoteFileId == nil {
		result.Warning = WarningIdNotConfirmed
		h.logger.WithFields(logrus.Fields{
			"module":      "attachments",
			"entity_type": in.EntityType,
			"entity_id":   in.EntityId,
			"file_name":   in.FileName,
		}).Warn(WarningIdNotConfirmed)
	}
	return result, nil
}

func (h *TicketHandler) snapshot(ctx context.Context, entityType string, entityId int64) (map[int64]bool, error) {
	files, err := h.remote.ListFiles(ctx, entityType, entityId)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]bool, len(files))
	for _, f := range files {
		ids[int64(f.Id)] = true
	}
	return ids, nil
}

// matchUploaded picks the uploaded file out of a listing: the pre-allocated
// id, else the first id missing from the pre-upload set, else the physical
// file name echoed by the ticket. A nil before set skips the diff.
func matchUploaded(files []remote.RemoteFile, preAllocated *int64, before map[int64]bool, physicalName string) *remote.RemoteFile {
	if preAllocated != nil {
		for i := range files {
			if int64(files[i].Id) == *preAllocated {
				return &files[i]
			}
		}
	}
	if before != nil {
		for i := range files {
			if files[i].Id > 0 && !before[int64(files[i].Id)] {
				return &files[i]
			}
		}
	}
	if physicalName != "" {
		for i := range files {
			if files[i].PhysicalFileName == physicalName {
				return &files[i]
			}
		}
	}
	return nil
}

// idFromHref reads a numeric trailing path segment, e.g. .../files/123.
func idFromHref(href string) (int64, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return 0, false
	}
	p := href
	if u, err := url.Parse(href); err == nil {
		p = u.Path
	}
	id, ok := utils.ParseInt64(path.Base(strings.TrimRight(p, "/")))
	return id, ok && id > 0
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
