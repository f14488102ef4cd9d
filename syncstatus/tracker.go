package syncstatus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/sirupsen/logrus"
)

var ErrInvalidTransition = errors.New("invalid sync status transition")

// Tracker keeps one sync status row per (entity type, entity id). It never
// calls the remote system.
type Tracker struct {
	writer *datastore.Writer
	logger *logrus.Logger
	now    func() time.Time
}

func NewTracker(writer *datastore.Writer) *Tracker {
	return &Tracker{writer: writer, logger: config.GetLogger(), now: time.Now}
}

// CanTransition reports whether a row in status from may move to status to.
// A missing row has from == "". Leaving synced needs an explicit forced resync.
func CanTransition(from, to models.SyncStatusType, forced bool) bool {
	if from == to {
		return true
	}
	switch from {
	case "":
		return to == models.SyncStatusPending || to == models.SyncStatusSyncing
	case models.SyncStatusPending:
		return to == models.SyncStatusSyncing
	case models.SyncStatusSyncing:
		return to == models.SyncStatusSynced || to == models.SyncStatusFailed
	case models.SyncStatusFailed:
		return to == models.SyncStatusSyncing
	case models.SyncStatusSynced:
		return forced && to == models.SyncStatusSyncing
	}
	return false
}

// Record upserts the status row. It is best-effort: callers should treat a
// returned error as a warning and carry on. A nil externalId keeps whatever
// id the row already has; errorMessage is cleared unless status is failed.
func (t *Tracker) Record(ctx context.Context, entityType models.SyncEntityType, entityId string, externalId *int64, status models.SyncStatusType, errorMessage string) error {
	err := t.record(ctx, entityType, entityId, externalId, status, errorMessage)
	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"module":      "syncstatus",
			"entity_type": entityType,
			"entity_id":   entityId,
			"status":      status,
		}).Warn("failed to record sync status: " + err.Error())
	}
	return err
}

func (t *Tracker) record(ctx context.Context, entityType models.SyncEntityType, entityId string, externalId *int64, status models.SyncStatusType, errorMessage string) error {
	if !entityType.IsValid() {
		return fmt.Errorf("unknown sync entity type %q", entityType)
	}
	if !status.IsValid() {
		return fmt.Errorf("unknown sync status %q", status)
	}
	existing, err := t.find(ctx, entityType, entityId)
	if err != nil {
		return err
	}

	var from models.SyncStatusType
	if existing != nil {
		from = models.SyncStatusType(utils.AsString(existing["status"]))
	}
	if !CanTransition(from, status, utils.IsForceResync(ctx)) {
		return fmt.Errorf("%w: %s -> %s for %s %s", ErrInvalidTransition, from, status, entityType, entityId)
	}

	patch := datastore.Row{"status": string(status)}
	if externalId != nil {
		patch["external_id"] = *externalId
	}
	if status == models.SyncStatusFailed && errorMessage != "" {
		patch["error_message"] = errorMessage
	} else {
		patch["error_message"] = nil
	}
	if status == models.SyncStatusSynced {
		patch["last_synced_at"] = t.now()
	}

	if existing == nil {
		patch["entity_type"] = string(entityType)
		patch["entity_id"] = entityId
		_, err = t.writer.Insert(ctx, models.TableSyncStatuses, patch)
		return err
	}
	_, err = t.writer.Update(ctx, models.TableSyncStatuses, existing.ID(), patch)
	return err
}

func (t *Tracker) find(ctx context.Context, entityType models.SyncEntityType, entityId string) (datastore.Row, error) {
	row, err := datastore.FindOne(ctx, t.writer.Store(), models.TableSyncStatuses, datastore.Row{
		"entity_type": string(entityType),
		"entity_id":   entityId,
	})
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, nil
	}
	return row, err
}

// Get returns the status row, or nil when the entity was never recorded.
func (t *Tracker) Get(ctx context.Context, entityType models.SyncEntityType, entityId string) (*models.SyncStatus, error) {
	row, err := t.find(ctx, entityType, entityId)
	if err != nil || row == nil {
		return nil, err
	}
	return decode(row)
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status     models.SyncStatusType
	EntityType models.SyncEntityType
	Limit      int
}

// List returns matching rows, most recently updated first.
func (t *Tracker) List(ctx context.Context, filter ListFilter) ([]*models.SyncStatus, error) {
	where := datastore.Row{}
	if filter.Status != "" {
		where["status"] = string(filter.Status)
	}
	if filter.EntityType != "" {
		where["entity_type"] = string(filter.EntityType)
	}
	rows, err := t.writer.Store().Find(ctx, models.TableSyncStatuses, where)
	if err != nil {
		return nil, err
	}
	out := make([]*models.SyncStatus, 0, len(rows))
	for _, row := range rows {
		s, err := decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListFailed is List restricted to failed rows.
func (t *Tracker) ListFailed(ctx context.Context, entityType models.SyncEntityType) ([]*models.SyncStatus, error) {
	return t.List(ctx, ListFilter{Status: models.SyncStatusFailed, EntityType: entityType})
}

func decode(row datastore.Row) (*models.SyncStatus, error) {
	var s models.SyncStatus
	if err := utils.DecodeRow(row, &s); err != nil {
		return nil, fmt.Errorf("decode sync status: %w", err)
	}
	return &s, nil
}
