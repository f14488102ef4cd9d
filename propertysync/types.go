package propertysync

import (
	"context"

	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/remote"
	"github.com/shopspring/decimal"
)

// RemoteAPI is the slice of the remote client the orchestrator uses.
type RemoteAPI interface {
	CreateRental(ctx context.Context, in remote.RentalCreateRequest) (*remote.Rental, error)
	UpdateRental(ctx context.Context, id int64, in remote.RentalUpdateRequest) (*remote.Rental, error)
	ListRentalUnits(ctx context.Context, propertyId int64) ([]remote.RentalUnit, error)
	CreateRentalOwner(ctx context.Context, in remote.RentalOwnerCreateRequest) (*remote.RentalOwner, error)
}

type OwnershipInput struct {
	OwnerId                string          `json:"ownerId" validate:"required"`
	OwnershipPercentage    decimal.Decimal `json:"ownershipPercentage"`
	DisbursementPercentage decimal.Decimal `json:"disbursementPercentage"`
	Primary                bool            `json:"primary"`
}

type UnitInput struct {
	UnitNumber    string           `json:"unitNumber" validate:"required"`
	UnitSize      *int             `json:"unitSize"`
	UnitBedrooms  string           `json:"unitBedrooms"`
	UnitBathrooms string           `json:"unitBathrooms"`
	MarketRent    *decimal.Decimal `json:"marketRent"`
	Description   string           `json:"description"`
}

// CreatePropertyRequest only requires what the local tables need. The
// remote system wants a full address and a classification; those are
// checked separately and only block the remote mirror.
type CreatePropertyRequest struct {
	OrgId                  string           `json:"orgId"`
	Name                   string           `json:"name" validate:"required"`
	AddressLine1           string           `json:"addressLine1" validate:"required"`
	AddressLine2           string           `json:"addressLine2"`
	City                   string           `json:"city"`
	State                  string           `json:"state"`
	PostalCode             string           `json:"postalCode"`
	Country                string           `json:"country"`
	PropertyType           string           `json:"propertyType"`
	RentalType             string           `json:"rentalType"`
	StructureDescription   string           `json:"structureDescription"`
	YearBuilt              *int             `json:"yearBuilt" validate:"omitempty,gte=1700,lte=2200"`
	Status                 string           `json:"status" validate:"omitempty,oneof=Active Inactive"`
	OperatingBankAccountId *string          `json:"operatingBankAccountId"`
	Reserve                *decimal.Decimal `json:"reserve"`
	Owners                 []OwnershipInput `json:"owners" validate:"dive"`
	Units                  []UnitInput      `json:"units" validate:"dive"`
	SyncToRemote           bool             `json:"syncToRemote"`
}

type CreatePropertyResult struct {
	Property     *models.Property     `json:"property"`
	Ownerships   []*models.Ownership  `json:"ownerships"`
	Units        []*models.Unit       `json:"units"`
	SyncWarnings []models.SyncWarning `json:"syncWarnings"`
}

// ResyncResult is the outcome of a manual remote sync of a stored property.
type ResyncResult struct {
	Property     *models.Property     `json:"property"`
	SyncWarnings []models.SyncWarning `json:"syncWarnings"`
}

// warnings collects non-fatal problems for the response.
type warnings []models.SyncWarning

func (w *warnings) add(entityType models.SyncEntityType, entityId, message string) {
	*w = append(*w, models.SyncWarning{EntityType: string(entityType), EntityId: entityId, Message: message})
}
