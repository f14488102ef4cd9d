package propertysync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/remote"
	"github.com/mmdatafocus/property_backend/resolver"
	"github.com/mmdatafocus/property_backend/utils"
)

const unitNotFoundAfterCreate = "not found after property create"

// syncRemote mirrors a locally committed property. Every outcome is recorded
// in the sync status table and surfaced as a warning; nothing here fails the
// request.
func (o *Orchestrator) syncRemote(ctx context.Context, property *models.Property, units []*models.Unit, owners []*models.Owner, warns *warnings) {
	ctx, span := tracer.Start(ctx, "propertysync.syncRemote")
	defer span.End()

	if o.remote == nil || !config.RemoteSyncEnabled() {
		warns.add(models.SyncEntityRental, property.ID, "remote sync disabled")
		return
	}
	if o.locker != nil {
		release, err := o.locker.Lock(ctx, propertyLockKey(property.ID))
		if err != nil {
			warns.add(models.SyncEntityRental, property.ID, "remote sync skipped: "+err.Error())
			return
		}
		defer release()
	}

	s := &syncRun{o: o, ctx: ctx, warns: warns}
	embedUnits := property.ExternalPropertyId == nil && config.EmbedUnitsInPropertyCreate() && len(units) > 0

	s.record(models.SyncEntityRental, property.ID, nil, models.SyncStatusSyncing, "")
	if embedUnits {
		for _, u := range units {
			s.record(models.SyncEntityRental, u.ID, nil, models.SyncStatusSyncing, "")
		}
	}

	// Owners already linked go into the property payload; the rest are
	// created once the remote property id is known.
	var ownerIds []int64
	var pending []*models.Owner
	for _, ow := range owners {
		if ow.ExternalOwnerId != nil && *ow.ExternalOwnerId > 0 {
			id, _ := o.resolver.EnsureOwner(ctx, ow, property, nil)
			ownerIds = append(ownerIds, id)
			continue
		}
		pending = append(pending, ow)
	}

	bankId, err := o.resolver.BankAccountRemoteId(ctx, utils.AsString(property.OperatingBankAccountId))
	if err != nil {
		warns.add(models.SyncEntityRental, property.ID, "operating bank account not resolved: "+err.Error())
	}

	failUnits := func(reason string) {
		if !embedUnits {
			return
		}
		for _, u := range units {
			s.fail(models.SyncEntityRental, u.ID, reason)
		}
	}

	payload := rentalPayload(property, ownerIds, bankId)
	if embedUnits {
		payload.Units = unitPayloads(units)
	}
	if missing := missingRemoteFields(payload); len(missing) > 0 {
		msg := "missing required fields: " + strings.Join(missing, ", ")
		s.fail(models.SyncEntityRental, property.ID, msg)
		failUnits("property not synced: " + msg)
		return
	}

	var remoteId int64
	if property.ExternalPropertyId != nil && *property.ExternalPropertyId > 0 {
		remoteId = *property.ExternalPropertyId
		if _, err := o.remote.UpdateRental(ctx, remoteId, updatePayload(payload)); err != nil {
			s.fail(models.SyncEntityRental, property.ID, "update failed: "+err.Error())
			return
		}
	} else {
		created, err := o.remote.CreateRental(ctx, payload)
		if err != nil {
			s.fail(models.SyncEntityRental, property.ID, "create failed: "+err.Error())
			failUnits("property not synced: " + err.Error())
			return
		}
		remoteId = int64(created.Id)
		if err := o.storeExternalId(ctx, models.TableProperties, property.ID, "external_property_id", remoteId); err != nil {
			warns.add(models.SyncEntityRental, property.ID, "remote property id not stored: "+err.Error())
		}
		property.ExternalPropertyId = &remoteId
	}
	s.record(models.SyncEntityRental, property.ID, &remoteId, models.SyncStatusSynced, "")

	if embedUnits || hasUnlinkedUnits(units) {
		s.linkUnits(remoteId, units, embedUnits)
	}

	if len(pending) == 0 {
		return
	}
	var added bool
	for _, ow := range pending {
		s.record(models.SyncEntityRentalOwner, ow.ID, nil, models.SyncStatusSyncing, "")
		id, err := o.resolver.EnsureOwner(ctx, ow, property, &remoteId)
		if id > 0 {
			ownerIds = append(ownerIds, id)
			added = true
			s.record(models.SyncEntityRentalOwner, ow.ID, &id, models.SyncStatusSynced, "")
			if errors.Is(err, resolver.ErrExternalIdNotPersisted) {
				warns.add(models.SyncEntityRentalOwner, ow.ID, err.Error())
			}
			continue
		}
		msg := "owner create failed"
		if err != nil {
			msg = err.Error()
		}
		s.fail(models.SyncEntityRentalOwner, ow.ID, msg)
	}
	if !added {
		return
	}
	payload.RentalOwnerIds = utils.UniqueInt64s(ownerIds)
	if _, err := o.remote.UpdateRental(ctx, remoteId, updatePayload(payload)); err != nil {
		warns.add(models.SyncEntityRental, property.ID, "owner link update failed: "+err.Error())
	}
}

// linkUnits matches remote units to local ones by unit number and stores
// the remote ids. With requireAll every local unit left unmatched is failed.
func (s *syncRun) linkUnits(remoteId int64, units []*models.Unit, requireAll bool) {
	remoteUnits, err := s.o.remote.ListRentalUnits(s.ctx, remoteId)
	if err != nil {
		for _, u := range units {
			if u.ExternalUnitId == nil && requireAll {
				s.fail(models.SyncEntityRental, u.ID, "unit listing failed: "+err.Error())
			}
		}
		return
	}
	byNumber := make(map[string]int64, len(remoteUnits))
	for _, ru := range remoteUnits {
		if _, dup := byNumber[ru.UnitNumber]; !dup {
			byNumber[ru.UnitNumber] = int64(ru.Id)
		}
	}
	for _, u := range units {
		if u.ExternalUnitId != nil {
			continue
		}
		id, ok := byNumber[u.UnitNumber]
		if !ok {
			if requireAll {
				s.fail(models.SyncEntityRental, u.ID, unitNotFoundAfterCreate)
			}
			continue
		}
		if err := s.o.storeExternalId(s.ctx, models.TableUnits, u.ID, "external_unit_id", id); err != nil {
			s.warns.add(models.SyncEntityRental, u.ID, "remote unit id not stored: "+err.Error())
		}
		u.ExternalUnitId = &id
		if !requireAll {
			s.record(models.SyncEntityRental, u.ID, nil, models.SyncStatusSyncing, "")
		}
		s.record(models.SyncEntityRental, u.ID, &id, models.SyncStatusSynced, "")
	}
}

func hasUnlinkedUnits(units []*models.Unit) bool {
	for _, u := range units {
		if u.ExternalUnitId == nil {
			return true
		}
	}
	return false
}

// storeExternalId writes a remote id back onto its local row. A dropped
// column counts as a failure.
func (o *Orchestrator) storeExternalId(ctx context.Context, table, id, column string, remoteId int64) error {
	res, err := o.writer.Update(ctx, table, id, datastore.Row{column: remoteId})
	if err != nil {
		return err
	}
	if len(res.DroppedColumns) > 0 {
		return fmt.Errorf("column %s not accepted", strings.Join(res.DroppedColumns, ", "))
	}
	return nil
}

// syncRun records statuses for one remote sync; a failed record becomes a
// warning.
type syncRun struct {
	o     *Orchestrator
	ctx   context.Context
	warns *warnings
}

func (s *syncRun) record(entityType models.SyncEntityType, entityId string, externalId *int64, status models.SyncStatusType, msg string) {
	if err := s.o.tracker.Record(s.ctx, entityType, entityId, externalId, status, msg); err != nil {
		s.warns.add(entityType, entityId, "sync status not recorded: "+err.Error())
	}
}

func (s *syncRun) fail(entityType models.SyncEntityType, entityId string, msg string) {
	s.record(entityType, entityId, nil, models.SyncStatusFailed, msg)
	s.warns.add(entityType, entityId, msg)
}

func rentalPayload(p *models.Property, ownerIds []int64, bankId *int64) remote.RentalCreateRequest {
	out := remote.RentalCreateRequest{
		Name:                 strings.TrimSpace(p.Name),
		StructureDescription: p.StructureDescription,
		RentalType:           p.RentalType,
		RentalSubType:        p.PropertyType,
		Address: remote.Address{
			AddressLine1: utils.FirstNonEmpty(p.AddressLine1),
			AddressLine2: utils.FirstNonEmpty(p.AddressLine2),
			City:         utils.FirstNonEmpty(p.City),
			State:        utils.FirstNonEmpty(p.State),
			PostalCode:   utils.FirstNonEmpty(p.PostalCode),
			Country:      utils.RemoteCountry(p.Country),
		},
		YearBuilt:              p.YearBuilt,
		IsActive:               p.IsActive(),
		OperatingBankAccountId: bankId,
		RentalOwnerIds:         utils.UniqueInt64s(ownerIds),
	}
	if p.Reserve != nil {
		r := p.Reserve.InexactFloat64()
		out.Reserve = &r
	}
	return out
}

func unitPayloads(units []*models.Unit) []remote.RentalUnitCreate {
	out := make([]remote.RentalUnitCreate, 0, len(units))
	for _, u := range units {
		ru := remote.RentalUnitCreate{
			UnitNumber:    u.UnitNumber,
			UnitSize:      u.UnitSize,
			UnitBedrooms:  u.UnitBedrooms,
			UnitBathrooms: u.UnitBathrooms,
			Description:   u.Description,
		}
		if u.MarketRent != nil {
			rent := u.MarketRent.InexactFloat64()
			ru.MarketRent = &rent
		}
		out = append(out, ru)
	}
	return out
}

func updatePayload(in remote.RentalCreateRequest) remote.RentalUpdateRequest {
	return remote.RentalUpdateRequest{
		Name:                   in.Name,
		StructureDescription:   in.StructureDescription,
		RentalType:             in.RentalType,
		RentalSubType:          in.RentalSubType,
		Address:                in.Address,
		YearBuilt:              in.YearBuilt,
		IsActive:               in.IsActive,
		OperatingBankAccountId: in.OperatingBankAccountId,
		Reserve:                in.Reserve,
		RentalOwnerIds:         in.RentalOwnerIds,
	}
}

// missingRemoteFields lists the remote payload fields that are required but
// empty, by their remote names.
func missingRemoteFields(payload remote.RentalCreateRequest) []string {
	err := utils.GetValidator().Struct(payload)
	if err == nil {
		return nil
	}
	missing := utils.MissingFields(err)
	if len(missing) == 0 {
		return []string{err.Error()}
	}
	return missing
}
