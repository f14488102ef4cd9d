package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/remote"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/sirupsen/logrus"
)

// DefaultCountry is used when neither the owner nor the property has one.
const DefaultCountry = utils.DefaultRemoteCountry

// ErrExternalIdNotPersisted is returned together with a valid remote id when
// the remote create worked but the id could not be stored locally.
var ErrExternalIdNotPersisted = errors.New("remote id not persisted on local row")

type OwnerRemote interface {
	CreateRentalOwner(ctx context.Context, in remote.RentalOwnerCreateRequest) (*remote.RentalOwner, error)
}

// Resolver maps local rows to their remote ids, creating remote owners on
// first use.
type Resolver struct {
	writer *datastore.Writer
	remote OwnerRemote
	logger *logrus.Logger
}

func New(writer *datastore.Writer, remoteAPI OwnerRemote) *Resolver {
	return &Resolver{writer: writer, remote: remoteAPI, logger: config.GetLogger()}
}

// EnsureOwner returns the owner's remote id. An owner that already carries
// one costs no remote call. Otherwise the owner is created remotely, linked to
// remotePropertyId when given, and the new id is written back to the owner
// row (and onto owner itself).
func (r *Resolver) EnsureOwner(ctx context.Context, owner *models.Owner, property *models.Property, remotePropertyId *int64) (int64, error) {
	if owner.ExternalOwnerId != nil && *owner.ExternalOwnerId > 0 {
		return *owner.ExternalOwnerId, nil
	}
	if r.remote == nil {
		return 0, errors.New("remote api not configured")
	}

	payload := OwnerPayload(owner, property)
	if remotePropertyId != nil {
		payload.PropertyIds = []int64{*remotePropertyId}
	}
	created, err := r.remote.CreateRentalOwner(ctx, payload)
	if err != nil {
		return 0, fmt.Errorf("create remote owner %s: %w", owner.ID, err)
	}
	id := int64(created.Id)
	owner.ExternalOwnerId = &id

	res, err := r.writer.Update(ctx, models.TableOwners, owner.ID, datastore.Row{"external_owner_id": id})
	if err == nil && len(res.DroppedColumns) > 0 {
		err = fmt.Errorf("columns dropped: %s", strings.Join(res.DroppedColumns, ", "))
	}
	if err != nil {
		config.LogError(r.logger, "resolver", "EnsureOwner", "persist external owner id", map[string]any{"owner_id": owner.ID, "external_owner_id": id}, err)
		return id, fmt.Errorf("%w: owner %s: %v", ErrExternalIdNotPersisted, owner.ID, err)
	}
	return id, nil
}

// OwnerPayload builds the minimal remote owner. The address is the first
// complete one of contact, tax and property address; with none complete each
// field falls back independently.
func OwnerPayload(owner *models.Owner, property *models.Property) remote.RentalOwnerCreateRequest {
	out := remote.RentalOwnerCreateRequest{
		IsCompany: owner.IsCompany,
		Email:     strings.TrimSpace(owner.Email),
		TaxId:     strings.TrimSpace(owner.TaxPayerId),
		IsActive:  owner.IsActive == nil || *owner.IsActive,
		Address:   ownerAddress(owner, property),
	}
	if owner.IsCompany {
		out.CompanyName = utils.FirstNonEmpty(owner.CompanyName, strings.TrimSpace(owner.FirstName+" "+owner.LastName))
	} else {
		out.FirstName = strings.TrimSpace(owner.FirstName)
		out.LastName = strings.TrimSpace(owner.LastName)
	}
	if phone := utils.NormalizePhoneNumber(owner.Phone, utils.CountryCode); phone != "" {
		out.PhoneNumbers = []remote.Phone{{Number: phone, Type: "Cell"}}
	}
	return out
}

func ownerAddress(owner *models.Owner, property *models.Property) remote.OwnerAddress {
	candidates := []remote.OwnerAddress{
		cleanAddress(owner.AddressLine1, owner.AddressLine2, owner.City, owner.State, owner.PostalCode, owner.Country),
		cleanAddress(owner.TaxAddressLine1, "", owner.TaxCity, owner.TaxState, owner.TaxPostalCode, owner.TaxCountry),
	}
	if property != nil {
		candidates = append(candidates, cleanAddress(property.AddressLine1, property.AddressLine2, property.City, property.State, property.PostalCode, property.Country))
	}
	for _, c := range candidates {
		if c.AddressLine1 != "" && c.City != "" && c.State != "" && c.PostalCode != "" {
			c.Country = utils.RemoteCountry(c.Country)
			return c
		}
	}
	var merged remote.OwnerAddress
	for _, c := range candidates {
		merged.AddressLine1 = utils.FirstNonEmpty(merged.AddressLine1, c.AddressLine1)
		merged.AddressLine2 = utils.FirstNonEmpty(merged.AddressLine2, c.AddressLine2)
		merged.City = utils.FirstNonEmpty(merged.City, c.City)
		merged.State = utils.FirstNonEmpty(merged.State, c.State)
		merged.PostalCode = utils.FirstNonEmpty(merged.PostalCode, c.PostalCode)
		merged.Country = utils.FirstNonEmpty(merged.Country, c.Country)
	}
	merged.Country = utils.RemoteCountry(merged.Country)
	return merged
}

func cleanAddress(line1, line2, city, state, postal, country string) remote.OwnerAddress {
	return remote.OwnerAddress{
		AddressLine1: utils.FirstNonEmpty(line1),
		AddressLine2: utils.FirstNonEmpty(line2),
		City:         utils.FirstNonEmpty(city),
		State:        utils.FirstNonEmpty(state),
		PostalCode:   utils.FirstNonEmpty(postal),
		Country:      utils.FirstNonEmpty(country),
	}
}
