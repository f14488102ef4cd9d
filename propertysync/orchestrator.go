package propertysync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/resolver"
	"github.com/mmdatafocus/property_backend/syncstatus"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/mmdatafocus/property_backend/propertysync")

// Orchestrator creates a property with its ownerships and units locally and
// mirrors it to the remote system when asked. Local state is authoritative:
// remote problems never fail a request whose local writes succeeded.
type Orchestrator struct {
	writer    *datastore.Writer
	tracker   *syncstatus.Tracker
	resolver  *resolver.Resolver
	remote    RemoteAPI
	addresses AddressEnricher
	locker    Locker
	logger    *logrus.Logger
}

type Option func(*Orchestrator)

// WithRemote enables remote sync. Without it sync requests only warn.
func WithRemote(api RemoteAPI) Option {
	return func(o *Orchestrator) { o.remote = api }
}

func WithAddressEnricher(e AddressEnricher) Option {
	return func(o *Orchestrator) { o.addresses = e }
}

func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

func New(writer *datastore.Writer, tracker *syncstatus.Tracker, res *resolver.Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		writer:   writer,
		tracker:  tracker,
		resolver: res,
		logger:   config.GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateProperty runs validate, resolve context, insert property, insert
// ownerships, insert units, then the optional remote sync. A failed local
// write removes the rows this call already wrote and returns a
// *utils.LocalPersistenceError; bad input returns a *utils.ValidationError
// before anything is written.
func (o *Orchestrator) CreateProperty(ctx context.Context, req CreatePropertyRequest) (*CreatePropertyResult, error) {
	ctx, span := tracer.Start(ctx, "propertysync.CreateProperty")
	defer span.End()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	orgId, ok, err := utils.FirstResolved(ctx, OrgResolver(&req)...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.NewValidationError("invalid property", map[string]string{"orgId": "required"})
	}
	span.SetAttributes(attribute.String("org_id", orgId))

	var warns warnings
	if o.addresses != nil {
		patch, errs := o.addresses.Enrich(ctx, &req)
		applyAddressPatch(&req, patch)
		for _, e := range errs {
			warns.add(models.SyncEntityRental, "", "address lookup: "+e)
		}
	}

	owners, err := o.loadOwners(ctx, orgId, req.Owners)
	if err != nil {
		return nil, err
	}

	result := &CreatePropertyResult{}
	created := &createdRows{}

	written, err := o.writer.Insert(ctx, models.TableProperties, propertyRow(orgId, &req))
	if err != nil {
		return nil, &utils.LocalPersistenceError{Step: "insert property", Err: err}
	}
	created.propertyId = written.Row.ID()
	warnDropped(&warns, models.SyncEntityRental, created.propertyId, written.DroppedColumns)
	if result.Property, err = decodeProperty(written.Row); err != nil {
		o.compensate(ctx, created)
		return nil, &utils.LocalPersistenceError{Step: "decode property", Err: err}
	}

	for _, in := range req.Owners {
		written, err := o.writer.Insert(ctx, models.TableOwnerships, ownershipRow(orgId, created.propertyId, in))
		if err != nil {
			o.compensate(ctx, created)
			return nil, &utils.LocalPersistenceError{Step: "insert ownerships", Err: err}
		}
		created.ownershipIds = append(created.ownershipIds, written.Row.ID())
		warnDropped(&warns, models.SyncEntityRentalOwner, in.OwnerId, written.DroppedColumns)
		ownership := &models.Ownership{}
		if err := utils.DecodeRow(written.Row, ownership); err != nil {
			o.compensate(ctx, created)
			return nil, &utils.LocalPersistenceError{Step: "decode ownership", Err: err}
		}
		result.Ownerships = append(result.Ownerships, ownership)
	}

	for _, in := range req.Units {
		written, err := o.writer.Insert(ctx, models.TableUnits, unitRow(orgId, created.propertyId, in))
		if err != nil {
			o.compensate(ctx, created)
			return nil, &utils.LocalPersistenceError{Step: "insert units", Err: err}
		}
		created.unitIds = append(created.unitIds, written.Row.ID())
		warnDropped(&warns, models.SyncEntityRental, written.Row.ID(), written.DroppedColumns)
		unit := &models.Unit{}
		if err := utils.DecodeRow(written.Row, unit); err != nil {
			o.compensate(ctx, created)
			return nil, &utils.LocalPersistenceError{Step: "decode unit", Err: err}
		}
		result.Units = append(result.Units, unit)
	}

	if req.SyncToRemote {
		o.syncRemote(ctx, result.Property, result.Units, owners, &warns)
	}
	result.SyncWarnings = warns
	return result, nil
}

// validateRequest checks local requirements only.
func validateRequest(req *CreatePropertyRequest) error {
	if err := utils.GetValidator().Struct(req); err != nil {
		return utils.NewValidationError("invalid property", utils.ProcessValidationErrors(err))
	}
	seen := map[string]bool{}
	for i, u := range req.Units {
		key := strings.ToLower(strings.TrimSpace(u.UnitNumber))
		if seen[key] {
			return utils.NewValidationError("invalid property", map[string]string{fmt.Sprintf("units[%d].unitNumber", i): "unique"})
		}
		seen[key] = true
	}
	seenOwners := map[string]bool{}
	for i, ow := range req.Owners {
		if seenOwners[ow.OwnerId] {
			return utils.NewValidationError("invalid property", map[string]string{fmt.Sprintf("owners[%d].ownerId", i): "unique"})
		}
		seenOwners[ow.OwnerId] = true
	}
	return nil
}

// loadOwners reads every referenced owner up front so an unknown owner is
// rejected before the property is written.
func (o *Orchestrator) loadOwners(ctx context.Context, orgId string, in []OwnershipInput) ([]*models.Owner, error) {
	owners := make([]*models.Owner, 0, len(in))
	for i, ow := range in {
		row, err := o.writer.Store().Get(ctx, models.TableOwners, ow.OwnerId)
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, utils.NewValidationError("invalid property", map[string]string{fmt.Sprintf("owners[%d].ownerId", i): "exists"})
		}
		if err != nil {
			return nil, &utils.LocalPersistenceError{Step: "load owners", Err: err}
		}
		owner := &models.Owner{}
		if err := utils.DecodeRow(row, owner); err != nil {
			return nil, &utils.LocalPersistenceError{Step: "decode owner", Err: err}
		}
		if owner.OrgId != "" && owner.OrgId != orgId {
			return nil, utils.NewValidationError("invalid property", map[string]string{fmt.Sprintf("owners[%d].ownerId", i): "exists"})
		}
		owners = append(owners, owner)
	}
	return owners, nil
}

type createdRows struct {
	propertyId   string
	ownershipIds []string
	unitIds      []string
}

// compensate deletes rows written by a failed request, units first, then
// ownerships, then the property. Every delete is attempted.
func (o *Orchestrator) compensate(ctx context.Context, created *createdRows) {
	ctx = context.WithoutCancel(ctx)
	store := o.writer.Store()
	del := func(table, id string) {
		if err := store.Delete(ctx, table, id); err != nil {
			config.LogError(o.logger, "propertysync", "compensate", "rollback delete", map[string]string{"table": table, "id": id}, err)
		}
	}
	for i := len(created.unitIds) - 1; i >= 0; i-- {
		del(models.TableUnits, created.unitIds[i])
	}
	for i := len(created.ownershipIds) - 1; i >= 0; i-- {
		del(models.TableOwnerships, created.ownershipIds[i])
	}
	if created.propertyId != "" {
		del(models.TableProperties, created.propertyId)
	}
}

func warnDropped(w *warnings, entityType models.SyncEntityType, entityId string, dropped []string) {
	for _, col := range dropped {
		w.add(entityType, entityId, fmt.Sprintf("column %s not stored", col))
	}
}

func propertyRow(orgId string, req *CreatePropertyRequest) datastore.Row {
	row := datastore.Row{
		"org_id":                orgId,
		"name":                  strings.TrimSpace(req.Name),
		"address_line1":         strings.TrimSpace(req.AddressLine1),
		"address_line2":         strings.TrimSpace(req.AddressLine2),
		"city":                  strings.TrimSpace(req.City),
		"state":                 strings.TrimSpace(req.State),
		"postal_code":           strings.TrimSpace(req.PostalCode),
		"country":               strings.TrimSpace(req.Country),
		"property_type":         req.PropertyType,
		"rental_type":           req.RentalType,
		"structure_description": req.StructureDescription,
		"status":                utils.FirstNonEmpty(req.Status, "Active"),
	}
	if req.YearBuilt != nil {
		row["year_built"] = *req.YearBuilt
	}
	if req.OperatingBankAccountId != nil && *req.OperatingBankAccountId != "" {
		row["operating_bank_account_id"] = *req.OperatingBankAccountId
	}
	if req.Reserve != nil {
		row["reserve"] = *req.Reserve
	}
	return row
}

func ownershipRow(orgId, propertyId string, in OwnershipInput) datastore.Row {
	return datastore.Row{
		"org_id":                  orgId,
		"owner_id":                in.OwnerId,
		"property_id":             propertyId,
		"ownership_percentage":    in.OwnershipPercentage,
		"disbursement_percentage": in.DisbursementPercentage,
		"primary":                 in.Primary,
	}
}

func unitRow(orgId, propertyId string, in UnitInput) datastore.Row {
	row := datastore.Row{
		"org_id":         orgId,
		"property_id":    propertyId,
		"unit_number":    strings.TrimSpace(in.UnitNumber),
		"unit_bedrooms":  in.UnitBedrooms,
		"unit_bathrooms": in.UnitBathrooms,
		"description":    in.Description,
	}
	if in.UnitSize != nil {
		row["unit_size"] = *in.UnitSize
	}
	if in.MarketRent != nil {
		row["market_rent"] = *in.MarketRent
	}
	return row
}

func decodeProperty(row datastore.Row) (*models.Property, error) {
	p := &models.Property{}
	if err := utils.DecodeRow(row, p); err != nil {
		return nil, err
	}
	return p, nil
}
