package propertysync

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/remote"
	"github.com/mmdatafocus/property_backend/resolver"
	"github.com/mmdatafocus/property_backend/syncstatus"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *orderedStore
	remote  *fakeRemote
	tracker *syncstatus.Tracker
	orch    *Orchestrator
}

func newFixture(t *testing.T, fake *fakeRemote, opts ...Option) *fixture {
	t.Helper()
	t.Setenv("REMOTE_SYNC_ENABLED", "true")
	t.Setenv("REMOTE_EMBED_UNITS", "true")
	t.Setenv("DEFAULT_ORG_ID", "")

	store := &orderedStore{MemoryStore: datastore.NewMemoryStore()}
	writer := datastore.NewWriter(store)
	tracker := syncstatus.NewTracker(writer)
	var ownerRemote resolver.OwnerRemote
	if fake != nil {
		ownerRemote = fake
		opts = append([]Option{WithRemote(fake)}, opts...)
	}
	res := resolver.New(writer, ownerRemote)
	return &fixture{
		store:   store,
		remote:  fake,
		tracker: tracker,
		orch:    New(writer, tracker, res, opts...),
	}
}

func (f *fixture) seedOwner(externalId *int64) string {
	row := datastore.Row{
		"org_id":     "org-1",
		"first_name": "Ann",
		"last_name":  "Lee",
		"email":      "ann@example.com",
	}
	if externalId != nil {
		row["external_owner_id"] = *externalId
	}
	return f.store.Seed(models.TableOwners, row).ID()
}

func (f *fixture) status(t *testing.T, entityType models.SyncEntityType, id string) *models.SyncStatus {
	t.Helper()
	s, err := f.tracker.Get(context.Background(), entityType, id)
	require.NoError(t, err)
	require.NotNil(t, s, "no sync status for %s %s", entityType, id)
	return s
}

func fullRequest(ownerIds ...string) CreatePropertyRequest {
	req := CreatePropertyRequest{
		OrgId:        "org-1",
		Name:         "Maple Court",
		AddressLine1: "12 Maple St",
		City:         "Austin",
		State:        "TX",
		PostalCode:   "78701",
		Country:      "UnitedStates",
		PropertyType: "ApartmentComplex",
		RentalType:   "Residential",
		Units: []UnitInput{
			{UnitNumber: "1A", UnitBedrooms: "OneBed"},
			{UnitNumber: "1B", UnitBedrooms: "TwoBed"},
		},
	}
	for i, id := range ownerIds {
		req.Owners = append(req.Owners, OwnershipInput{
			OwnerId:                id,
			OwnershipPercentage:    decimal.NewFromInt(50),
			DisbursementPercentage: decimal.NewFromInt(50),
			Primary:                i == 0,
		})
	}
	return req
}

func TestCreateProperty_LocalOnly(t *testing.T) {
	fake := &fakeRemote{rentalId: 500}
	fx := newFixture(t, fake)
	ownerId := fx.seedOwner(nil)

	res, err := fx.orch.CreateProperty(context.Background(), fullRequest(ownerId))
	require.NoError(t, err)

	assert.NotEmpty(t, res.Property.ID)
	assert.Equal(t, "org-1", res.Property.OrgId)
	assert.Equal(t, "Active", res.Property.Status)
	assert.Len(t, res.Ownerships, 1)
	assert.Len(t, res.Units, 2)
	assert.Empty(t, res.SyncWarnings)

	assert.Zero(t, fake.calls())
	assert.Empty(t, fx.store.Rows(models.TableSyncStatuses))
	assert.Len(t, fx.store.Rows(models.TableUnits), 2)
}

func TestCreateProperty_OrgFromContextWins(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := utils.SetOrgIdInContext(context.Background(), "org-ctx")

	req := fullRequest()
	res, err := fx.orch.CreateProperty(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "org-ctx", res.Property.OrgId)
}

func TestCreateProperty_ValidationWritesNothing(t *testing.T) {
	cases := map[string]struct {
		req   func(owner string) CreatePropertyRequest
		field string
	}{
		"missing name": {
			req: func(owner string) CreatePropertyRequest {
				r := fullRequest()
				r.Name = ""
				return r
			},
			field: "name",
		},
		"missing org": {
			req: func(owner string) CreatePropertyRequest {
				r := fullRequest()
				r.OrgId = ""
				return r
			},
			field: "orgId",
		},
		"duplicate unit number": {
			req: func(owner string) CreatePropertyRequest {
				r := fullRequest()
				r.Units[1].UnitNumber = "1a"
				return r
			},
			field: "units[1].unitNumber",
		},
		"unknown owner": {
			req: func(owner string) CreatePropertyRequest {
				return fullRequest("does-not-exist")
			},
			field: "owners[0].ownerId",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(t, &fakeRemote{})
			owner := fx.seedOwner(nil)

			_, err := fx.orch.CreateProperty(context.Background(), tc.req(owner))
			var verr *utils.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
			assert.Empty(t, fx.store.Rows(models.TableProperties))
			assert.Empty(t, fx.store.Rows(models.TableUnits))
		})
	}
}

func TestCreateProperty_OwnershipFailureRemovesProperty(t *testing.T) {
	fake := &fakeRemote{rentalId: 500}
	fx := newFixture(t, fake)
	ownerId := fx.seedOwner(nil)
	fx.store.FailNext("insert", models.TableOwnerships, &datastore.StoreError{Code: "23503", Message: "foreign key violation"})

	req := fullRequest(ownerId)
	req.SyncToRemote = true
	_, err := fx.orch.CreateProperty(context.Background(), req)

	var perr *utils.LocalPersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "insert ownerships", perr.Step)
	assert.Empty(t, fx.store.Rows(models.TableProperties))
	assert.Empty(t, fx.store.Rows(models.TableUnits))
	assert.Zero(t, fake.calls())
}

func TestCreateProperty_UnitFailureCompensatesInReverseOrder(t *testing.T) {
	fx := newFixture(t, nil)
	ownerId := fx.seedOwner(nil)
	fx.store.FailNext("insert", models.TableUnits, nil, errors.New("disk full"))

	_, err := fx.orch.CreateProperty(context.Background(), fullRequest(ownerId))

	var perr *utils.LocalPersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "insert units", perr.Step)
	assert.Equal(t, []string{models.TableUnits, models.TableOwnerships, models.TableProperties}, fx.store.deletes)
	assert.Empty(t, fx.store.Rows(models.TableProperties))
	assert.Empty(t, fx.store.Rows(models.TableOwnerships))
	assert.Empty(t, fx.store.Rows(models.TableUnits))
	assert.Len(t, fx.store.Rows(models.TableOwners), 1)
}

func TestCreateProperty_CompensationContinuesPastDeleteError(t *testing.T) {
	fx := newFixture(t, nil)
	ownerId := fx.seedOwner(nil)
	fx.store.FailNext("insert", models.TableUnits, errors.New("disk full"))
	fx.store.FailNext("delete", models.TableOwnerships, errors.New("lock timeout"))

	_, err := fx.orch.CreateProperty(context.Background(), fullRequest(ownerId))
	require.Error(t, err)

	assert.Equal(t, []string{models.TableOwnerships, models.TableProperties}, fx.store.deletes)
	assert.Empty(t, fx.store.Rows(models.TableProperties))
	assert.Len(t, fx.store.Rows(models.TableOwnerships), 1)
}

func TestCreateProperty_UnitColumnDriftIsDropped(t *testing.T) {
	fx := newFixture(t, nil)
	fx.store.AllowColumns(models.TableUnits, "org_id", "property_id", "unit_number", "unit_bedrooms", "unit_bathrooms", "unit_size", "market_rent", "external_unit_id")

	req := fullRequest()
	req.Units[0].Description = "corner unit"
	res, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Units, 2)
	rows := fx.store.Rows(models.TableUnits)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.NotContains(t, row, "description")
	}
	require.NotEmpty(t, res.SyncWarnings)
	assert.Contains(t, res.SyncWarnings[0].Message, "description")
}

func TestCreateProperty_MissingRemoteFieldsFailsSyncOnly(t *testing.T) {
	fake := &fakeRemote{rentalId: 500}
	fx := newFixture(t, fake)

	req := fullRequest()
	req.City = ""
	req.RentalType = ""
	req.SyncToRemote = true
	res, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, fake.creates)
	assert.Zero(t, fake.calls())

	st := fx.status(t, models.SyncEntityRental, res.Property.ID)
	assert.Equal(t, models.SyncStatusFailed, st.Status)
	require.NotNil(t, st.ErrorMessage)
	assert.Contains(t, *st.ErrorMessage, "missing required fields")
	assert.Contains(t, *st.ErrorMessage, "Address.City")
	assert.Contains(t, *st.ErrorMessage, "RentalType")

	for _, u := range res.Units {
		assert.Equal(t, models.SyncStatusFailed, fx.status(t, models.SyncEntityRental, u.ID).Status)
	}
	assert.NotEmpty(t, res.SyncWarnings)
}

func TestCreateProperty_SyncsPropertyUnitsAndOwners(t *testing.T) {
	fake := &fakeRemote{
		rentalId:    500,
		nextOwnerId: 700,
		remoteUnits: []remote.RentalUnit{
			{Id: 601, PropertyId: 500, UnitNumber: "1A"},
			{Id: 602, PropertyId: 500, UnitNumber: "1B"},
		},
	}
	fx := newFixture(t, fake)
	linked := int64(9)
	linkedOwner := fx.seedOwner(&linked)
	newOwner := fx.seedOwner(nil)

	req := fullRequest(linkedOwner, newOwner)
	req.SyncToRemote = true
	res, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.SyncWarnings)

	require.Len(t, fake.creates, 1)
	created := fake.creates[0]
	assert.Equal(t, "Residential", created.RentalType)
	assert.Equal(t, "ApartmentComplex", created.RentalSubType)
	assert.Equal(t, []int64{9}, created.RentalOwnerIds)
	assert.Len(t, created.Units, 2)

	prop, err := fx.store.Get(context.Background(), models.TableProperties, res.Property.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 500, prop["external_property_id"])
	assert.EqualValues(t, 500, *res.Property.ExternalPropertyId)

	st := fx.status(t, models.SyncEntityRental, res.Property.ID)
	assert.Equal(t, models.SyncStatusSynced, st.Status)
	require.NotNil(t, st.ExternalId)
	assert.EqualValues(t, 500, *st.ExternalId)

	wantUnits := map[string]int64{"1A": 601, "1B": 602}
	for _, u := range res.Units {
		row, err := fx.store.Get(context.Background(), models.TableUnits, u.ID)
		require.NoError(t, err)
		assert.EqualValues(t, wantUnits[u.UnitNumber], row["external_unit_id"])
		assert.Equal(t, models.SyncStatusSynced, fx.status(t, models.SyncEntityRental, u.ID).Status)
	}

	require.Len(t, fake.ownerCreates, 1)
	assert.Equal(t, []int64{500}, fake.ownerCreates[0].PropertyIds)
	ownerRow, err := fx.store.Get(context.Background(), models.TableOwners, newOwner)
	require.NoError(t, err)
	assert.EqualValues(t, 700, ownerRow["external_owner_id"])
	assert.Equal(t, models.SyncStatusSynced, fx.status(t, models.SyncEntityRentalOwner, newOwner).Status)

	require.Len(t, fake.updates, 1)
	assert.ElementsMatch(t, []int64{9, 700}, fake.updates[0].RentalOwnerIds)
	assert.Equal(t, "Maple Court", fake.updates[0].Name)
}

func TestCreateProperty_CountrySentAsRemoteCode(t *testing.T) {
	fake := &fakeRemote{rentalId: 500}
	fx := newFixture(t, fake)

	req := fullRequest()
	req.Country = "United States"
	req.SyncToRemote = true
	res, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, fake.creates, 1)
	assert.Equal(t, "UnitedStates", fake.creates[0].Address.Country)
	assert.Equal(t, "United States", res.Property.Country)
	assert.Equal(t, models.SyncStatusSynced, fx.status(t, models.SyncEntityRental, res.Property.ID).Status)
}

func TestCreateProperty_LinkedOwnersCostNoRemoteCall(t *testing.T) {
	fake := &fakeRemote{rentalId: 500, remoteUnits: []remote.RentalUnit{{Id: 601, UnitNumber: "1A"}, {Id: 602, UnitNumber: "1B"}}}
	fx := newFixture(t, fake)
	linked := int64(9)
	ownerId := fx.seedOwner(&linked)

	req := fullRequest(ownerId)
	req.SyncToRemote = true
	_, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, fake.ownerCreates)
	assert.Empty(t, fake.updates)
}

func TestCreateProperty_RemoteCreateFailureKeepsLocalRows(t *testing.T) {
	fake := &fakeRemote{createErr: &remote.APIError{StatusCode: 422, Body: `{"errors":["bad"]}`}}
	fx := newFixture(t, fake)

	req := fullRequest()
	req.SyncToRemote = true
	res, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, fx.store.Rows(models.TableProperties), 1)
	st := fx.status(t, models.SyncEntityRental, res.Property.ID)
	assert.Equal(t, models.SyncStatusFailed, st.Status)
	require.NotNil(t, st.ErrorMessage)
	assert.Contains(t, *st.ErrorMessage, "422")
	for _, u := range res.Units {
		assert.Equal(t, models.SyncStatusFailed, fx.status(t, models.SyncEntityRental, u.ID).Status)
	}
	assert.Zero(t, fake.unitLists)
	assert.NotEmpty(t, res.SyncWarnings)
}

func TestCreateProperty_UnmatchedUnitFails(t *testing.T) {
	fake := &fakeRemote{rentalId: 500, remoteUnits: []remote.RentalUnit{{Id: 601, UnitNumber: "1A"}}}
	fx := newFixture(t, fake)

	req := fullRequest()
	req.SyncToRemote = true
	res, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)

	for _, u := range res.Units {
		st := fx.status(t, models.SyncEntityRental, u.ID)
		if u.UnitNumber == "1A" {
			assert.Equal(t, models.SyncStatusSynced, st.Status)
			continue
		}
		assert.Equal(t, models.SyncStatusFailed, st.Status)
		require.NotNil(t, st.ErrorMessage)
		assert.Equal(t, unitNotFoundAfterCreate, *st.ErrorMessage)
	}
}

func TestCreateProperty_SyncDisabled(t *testing.T) {
	fake := &fakeRemote{rentalId: 500}
	fx := newFixture(t, fake)
	t.Setenv("REMOTE_SYNC_ENABLED", "false")

	req := fullRequest()
	req.SyncToRemote = true
	res, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, fake.calls())
	require.Len(t, res.SyncWarnings, 1)
	assert.Equal(t, "remote sync disabled", res.SyncWarnings[0].Message)
}

func TestCreateProperty_LockHeldSkipsSync(t *testing.T) {
	fake := &fakeRemote{rentalId: 500}
	locker := &fakeLocker{err: ErrSyncInProgress}
	fx := newFixture(t, fake, WithLocker(locker))

	req := fullRequest()
	req.SyncToRemote = true
	res, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, fake.calls())
	assert.Equal(t, []string{propertyLockKey(res.Property.ID)}, locker.keys)
	require.Len(t, res.SyncWarnings, 1)
	assert.Contains(t, res.SyncWarnings[0].Message, ErrSyncInProgress.Error())
}

func TestCreateProperty_LockReleasedAfterSync(t *testing.T) {
	fake := &fakeRemote{rentalId: 500, remoteUnits: []remote.RentalUnit{{Id: 601, UnitNumber: "1A"}, {Id: 602, UnitNumber: "1B"}}}
	locker := &fakeLocker{}
	fx := newFixture(t, fake, WithLocker(locker))

	req := fullRequest()
	req.SyncToRemote = true
	_, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.released)
}

type stubEnricher struct{}

func (stubEnricher) Enrich(ctx context.Context, req *CreatePropertyRequest) (AddressPatch, []string) {
	return AddressPatch{City: "Austin", State: "TX"}, []string{"postal code lookup timed out"}
}

func TestCreateProperty_AddressEnrichment(t *testing.T) {
	fx := newFixture(t, nil, WithAddressEnricher(stubEnricher{}))

	req := fullRequest()
	req.City = ""
	req.State = "CA"
	res, err := fx.orch.CreateProperty(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Austin", res.Property.City)
	assert.Equal(t, "CA", res.Property.State)
	require.Len(t, res.SyncWarnings, 1)
	assert.Contains(t, res.SyncWarnings[0].Message, "postal code")
}
