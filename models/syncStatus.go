package models

import "time"

// SyncStatus is one row per (entity_type, entity_id). Rows are upserted and
// never deleted; a row whose entity was rolled back stays as history.
type SyncStatus struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	EntityType   SyncEntityType `gorm:"uniqueIndex:idx_sync_status_entity,priority:1;size:50;not null" json:"entity_type"`
	EntityId     string         `gorm:"uniqueIndex:idx_sync_status_entity,priority:2;size:36;not null" json:"entity_id"`
	ExternalId   *int64         `json:"external_id"`
	Status       SyncStatusType `gorm:"index;size:20;not null" json:"status"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message"`
	LastSyncedAt *time.Time     `json:"last_synced_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (SyncStatus) TableName() string { return TableSyncStatuses }
