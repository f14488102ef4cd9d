package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Owner is a rental owner. Contact address fields may be incomplete; the
// remote payload falls back to the tax address and then to the property.
type Owner struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	OrgId           string    `gorm:"index;size:36;not null" json:"org_id"`
	FirstName       string    `gorm:"size:100" json:"first_name"`
	LastName        string    `gorm:"size:100" json:"last_name"`
	CompanyName     string    `gorm:"size:255" json:"company_name"`
	IsCompany       bool      `json:"is_company"`
	Email           string    `gorm:"size:255" json:"email"`
	Phone           string    `gorm:"size:50" json:"phone"`
	AddressLine1    string    `gorm:"size:255" json:"address_line1"`
	AddressLine2    string    `gorm:"size:255" json:"address_line2"`
	City            string    `gorm:"size:100" json:"city"`
	State           string    `gorm:"size:100" json:"state"`
	PostalCode      string    `gorm:"size:20" json:"postal_code"`
	Country         string    `gorm:"size:100" json:"country"`
	TaxPayerId      string    `gorm:"size:50" json:"tax_payer_id"`
	TaxAddressLine1 string    `gorm:"size:255" json:"tax_address_line1"`
	TaxCity         string    `gorm:"size:100" json:"tax_city"`
	TaxState        string    `gorm:"size:100" json:"tax_state"`
	TaxPostalCode   string    `gorm:"size:20" json:"tax_postal_code"`
	TaxCountry      string    `gorm:"size:100" json:"tax_country"`
	IsActive        *bool     `json:"is_active"`
	ExternalOwnerId *int64    `gorm:"index" json:"external_owner_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Owner) TableName() string { return TableOwners }

// Ownership links an owner to a property. Percentages are persisted as
// given; summing to 100 is the caller's concern.
type Ownership struct {
	ID                     string          `gorm:"primaryKey;size:36" json:"id"`
	OrgId                  string          `gorm:"index;size:36;not null" json:"org_id"`
	OwnerId                string          `gorm:"index;size:36;not null" json:"owner_id"`
	PropertyId             string          `gorm:"index;size:36;not null" json:"property_id"`
	OwnershipPercentage    decimal.Decimal `gorm:"type:decimal(7,4)" json:"ownership_percentage"`
	DisbursementPercentage decimal.Decimal `gorm:"type:decimal(7,4)" json:"disbursement_percentage"`
	Primary                bool            `json:"primary"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func (Ownership) TableName() string { return TableOwnerships }
