package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is a rentable space inside a property. UnitNumber is the join key
// used to match remote units after a property create.
type Unit struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	OrgId          string           `gorm:"index;size:36;not null" json:"org_id"`
	PropertyId     string           `gorm:"index;size:36;not null" json:"property_id"`
	UnitNumber     string           `gorm:"size:50;not null" json:"unit_number"`
	UnitSize       *int             `json:"unit_size"`
	UnitBedrooms   string           `gorm:"size:20" json:"unit_bedrooms"`
	UnitBathrooms  string           `gorm:"size:20" json:"unit_bathrooms"`
	MarketRent     *decimal.Decimal `gorm:"type:decimal(20,4)" json:"market_rent"`
	Description    string           `gorm:"type:text" json:"description"`
	ExternalUnitId *int64           `gorm:"index" json:"external_unit_id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (Unit) TableName() string { return TableUnits }
