package models

import "time"

// FileRecord is a locally stored attachment. ExternalFileId stays nil when
// the remote upload went through but its id could not be confirmed.
type FileRecord struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	OrgId              string    `gorm:"index;size:36;not null" json:"org_id"`
	EntityType         string    `gorm:"index:idx_files_entity,priority:1;size:50;not null" json:"entity_type"`
	EntityId           string    `gorm:"index:idx_files_entity,priority:2;size:36;not null" json:"entity_id"`
	ExternalEntityType string    `gorm:"size:50" json:"external_entity_type"`
	ExternalEntityId   *int64    `json:"external_entity_id"`
	FileName           string    `gorm:"size:255" json:"file_name"`
	Title              string    `gorm:"size:255" json:"title"`
	MimeType           string    `gorm:"size:100" json:"mime_type"`
	SizeBytes          int64     `json:"size_bytes"`
	StorageProvider    string    `gorm:"size:20" json:"storage_provider"`
	Bucket             string    `gorm:"size:255" json:"bucket"`
	StorageKey         string    `gorm:"size:512" json:"storage_key"`
	ThumbnailKey       string    `gorm:"size:512" json:"thumbnail_key"`
	IsPrivate          bool      `json:"is_private"`
	ExternalCategoryId *int64    `json:"external_category_id"`
	ExternalVendorId   *int64    `json:"external_vendor_id"`
	ExternalFileId     *int64    `gorm:"index" json:"external_file_id"`
	ExternalHref       *string   `gorm:"size:512" json:"external_href"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (FileRecord) TableName() string { return TableFiles }

type FileCategory struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	OrgId              string    `gorm:"index;size:36;not null" json:"org_id"`
	CategoryName       string    `gorm:"size:255;not null" json:"category_name"`
	ExternalCategoryId *int64    `gorm:"index" json:"external_category_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (FileCategory) TableName() string { return TableFileCategories }
