package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Property is a rental property owned by an org.
type Property struct {
	ID                     string           `gorm:"primaryKey;size:36" json:"id"`
	OrgId                  string           `gorm:"index;size:36;not null" json:"org_id"`
	Name                   string           `gorm:"size:255;not null" json:"name"`
	AddressLine1           string           `gorm:"size:255" json:"address_line1"`
	AddressLine2           string           `gorm:"size:255" json:"address_line2"`
	City                   string           `gorm:"size:100" json:"city"`
	State                  string           `gorm:"size:100" json:"state"`
	PostalCode             string           `gorm:"size:20" json:"postal_code"`
	Country                string           `gorm:"size:100" json:"country"`
	PropertyType           string           `gorm:"size:50" json:"property_type"`
	RentalType             string           `gorm:"size:50" json:"rental_type"`
	StructureDescription   string           `gorm:"type:text" json:"structure_description"`
	YearBuilt              *int             `json:"year_built"`
	Status                 string           `gorm:"size:20" json:"status"`
	OperatingBankAccountId *string          `gorm:"size:36" json:"operating_bank_account_id"`
	Reserve                *decimal.Decimal `gorm:"type:decimal(20,4)" json:"reserve"`
	ExternalPropertyId     *int64           `gorm:"index" json:"external_property_id"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

func (Property) TableName() string { return TableProperties }

// IsActive treats anything but an explicit "Inactive" status as active.
func (p Property) IsActive() bool {
	return p.Status != "Inactive"
}
