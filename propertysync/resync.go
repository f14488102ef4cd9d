package propertysync

import (
	"context"
	"errors"
	"sort"

	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/utils"
)

// ResyncProperty pushes a stored property to the remote system again. A
// property that already has a remote id is updated in place and any unit
// without a remote id is linked by unit number; otherwise it is created the
// same way CreateProperty does. Rows already synced may be re-synced.
func (o *Orchestrator) ResyncProperty(ctx context.Context, propertyId string) (*ResyncResult, error) {
	ctx, span := tracer.Start(ctx, "propertysync.ResyncProperty")
	defer span.End()
	ctx = utils.SetForceResyncInContext(ctx, true)

	store := o.writer.Store()
	row, err := store.Get(ctx, models.TableProperties, propertyId)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "load property", Err: err}
	}
	property, err := decodeProperty(row)
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "decode property", Err: err}
	}
	if orgId, ok := utils.GetOrgIdFromContext(ctx); ok && orgId != "" && property.OrgId != orgId {
		return nil, utils.ErrorRecordNotFound
	}

	units, err := o.loadUnits(ctx, propertyId)
	if err != nil {
		return nil, err
	}
	owners, err := o.loadPropertyOwners(ctx, property)
	if err != nil {
		return nil, err
	}

	var warns warnings
	o.syncRemote(ctx, property, units, owners, &warns)
	return &ResyncResult{Property: property, SyncWarnings: warns}, nil
}

func (o *Orchestrator) loadUnits(ctx context.Context, propertyId string) ([]*models.Unit, error) {
	rows, err := o.writer.Store().Find(ctx, models.TableUnits, datastore.Row{"property_id": propertyId})
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "load units", Err: err}
	}
	units := make([]*models.Unit, 0, len(rows))
	for _, r := range rows {
		u := &models.Unit{}
		if err := utils.DecodeRow(r, u); err != nil {
			return nil, &utils.LocalPersistenceError{Step: "decode unit", Err: err}
		}
		units = append(units, u)
	}
	sort.SliceStable(units, func(i, j int) bool { return units[i].UnitNumber < units[j].UnitNumber })
	return units, nil
}

// loadPropertyOwners follows the property's ownerships to their owners.
// An ownership pointing at a deleted owner is skipped.
func (o *Orchestrator) loadPropertyOwners(ctx context.Context, property *models.Property) ([]*models.Owner, error) {
	store := o.writer.Store()
	rows, err := store.Find(ctx, models.TableOwnerships, datastore.Row{"property_id": property.ID})
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "load ownerships", Err: err}
	}
	owners := make([]*models.Owner, 0, len(rows))
	seen := map[string]bool{}
	for _, r := range rows {
		ownerId := utils.AsString(r["owner_id"])
		if ownerId == "" || seen[ownerId] {
			continue
		}
		seen[ownerId] = true
		ownerRow, err := store.Get(ctx, models.TableOwners, ownerId)
		if errors.Is(err, datastore.ErrNotFound) {
			o.logger.WithField("owner_id", ownerId).Warn("ownership references missing owner")
			continue
		}
		if err != nil {
			return nil, &utils.LocalPersistenceError{Step: "load owners", Err: err}
		}
		owner := &models.Owner{}
		if err := utils.DecodeRow(ownerRow, owner); err != nil {
			return nil, &utils.LocalPersistenceError{Step: "decode owner", Err: err}
		}
		owners = append(owners, owner)
	}
	return owners, nil
}
