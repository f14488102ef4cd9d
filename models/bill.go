package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Vendor struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	OrgId            string    `gorm:"index;size:36;not null" json:"org_id"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	ExternalVendorId *int64    `gorm:"index" json:"external_vendor_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Vendor) TableName() string { return TableVendors }

type Bill struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	OrgId          string          `gorm:"index;size:36;not null" json:"org_id"`
	VendorId       *string         `gorm:"size:36" json:"vendor_id"`
	PropertyId     *string         `gorm:"size:36" json:"property_id"`
	Memo           string          `gorm:"type:text" json:"memo"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount"`
	DueDate        *time.Time      `json:"due_date"`
	ExternalBillId *int64          `gorm:"index" json:"external_bill_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Bill) TableName() string { return TableBills }
