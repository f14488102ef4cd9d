package syncstatus

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker() (*Tracker, *datastore.MemoryStore) {
	store := datastore.NewMemoryStore()
	return NewTracker(datastore.NewWriter(store)), store
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.SyncStatusType
		forced   bool
		ok       bool
	}{
		{"", models.SyncStatusPending, false, true},
		{"", models.SyncStatusSyncing, false, true},
		{"", models.SyncStatusSynced, false, false},
		{models.SyncStatusPending, models.SyncStatusSyncing, false, true},
		{models.SyncStatusSyncing, models.SyncStatusSynced, false, true},
		{models.SyncStatusSyncing, models.SyncStatusFailed, false, true},
		{models.SyncStatusFailed, models.SyncStatusSyncing, false, true},
		{models.SyncStatusFailed, models.SyncStatusSynced, false, false},
		{models.SyncStatusSynced, models.SyncStatusFailed, false, false},
		{models.SyncStatusSynced, models.SyncStatusSyncing, false, false},
		{models.SyncStatusSynced, models.SyncStatusSyncing, true, true},
		{models.SyncStatusSynced, models.SyncStatusSynced, false, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to, tc.forced); got != tc.ok {
			t.Fatalf("CanTransition(%q, %q, %v) expected %v, got %v", tc.from, tc.to, tc.forced, tc.ok, got)
		}
	}
}

func TestRecord_UpsertsOneRowPerEntity(t *testing.T) {
	ctx := context.Background()
	tracker, store := newTracker()

	require.NoError(t, tracker.Record(ctx, models.SyncEntityRental, "p1", nil, models.SyncStatusSyncing, ""))
	require.NoError(t, tracker.Record(ctx, models.SyncEntityRental, "p1", utils.Int64Ptr(42), models.SyncStatusSynced, ""))

	rows := store.Rows(models.TableSyncStatuses)
	require.Len(t, rows, 1)

	got, err := tracker.Get(ctx, models.SyncEntityRental, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.SyncStatusSynced, got.Status)
	require.NotNil(t, got.ExternalId)
	assert.Equal(t, int64(42), *got.ExternalId)
	assert.Nil(t, got.ErrorMessage)
	assert.NotNil(t, got.LastSyncedAt)
}

func TestRecord_FailedKeepsMessageAndExternalId(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker()

	require.NoError(t, tracker.Record(ctx, models.SyncEntityRental, "p1", utils.Int64Ptr(9), models.SyncStatusSyncing, ""))
	require.NoError(t, tracker.Record(ctx, models.SyncEntityRental, "p1", nil, models.SyncStatusFailed, "400 bad request"))

	got, err := tracker.Get(ctx, models.SyncEntityRental, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "400 bad request", *got.ErrorMessage)
	assert.Equal(t, int64(9), *got.ExternalId)
}

func TestRecord_SyncedIsNotDowngraded(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker()

	require.NoError(t, tracker.Record(ctx, models.SyncEntityRentalOwner, "o1", nil, models.SyncStatusSyncing, ""))
	require.NoError(t, tracker.Record(ctx, models.SyncEntityRentalOwner, "o1", utils.Int64Ptr(3), models.SyncStatusSynced, ""))

	err := tracker.Record(ctx, models.SyncEntityRentalOwner, "o1", nil, models.SyncStatusSyncing, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, _ := tracker.Get(ctx, models.SyncEntityRentalOwner, "o1")
	assert.Equal(t, models.SyncStatusSynced, got.Status)

	forced := utils.SetForceResyncInContext(ctx, true)
	require.NoError(t, tracker.Record(forced, models.SyncEntityRentalOwner, "o1", nil, models.SyncStatusSyncing, ""))
	got, _ = tracker.Get(ctx, models.SyncEntityRentalOwner, "o1")
	assert.Equal(t, models.SyncStatusSyncing, got.Status)
}

func TestRecord_StoreFailureIsReturnedNotPanicked(t *testing.T) {
	ctx := context.Background()
	tracker, store := newTracker()
	store.FailNext("find", models.TableSyncStatuses, errors.New("db down"))

	err := tracker.Record(ctx, models.SyncEntityFile, "f1", nil, models.SyncStatusSyncing, "")
	require.Error(t, err)
	assert.Empty(t, store.Rows(models.TableSyncStatuses))
}

func TestGet_MissingReturnsNil(t *testing.T) {
	tracker, _ := newTracker()
	got, err := tracker.Get(context.Background(), models.SyncEntityRental, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListFailed(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, tracker.Record(ctx, models.SyncEntityRental, id, nil, models.SyncStatusSyncing, ""))
	}
	require.NoError(t, tracker.Record(ctx, models.SyncEntityRental, "a", nil, models.SyncStatusFailed, "x"))
	require.NoError(t, tracker.Record(ctx, models.SyncEntityRental, "c", nil, models.SyncStatusFailed, "y"))
	require.NoError(t, tracker.Record(ctx, models.SyncEntityRental, "b", utils.Int64Ptr(1), models.SyncStatusSynced, ""))

	failed, err := tracker.ListFailed(ctx, "")
	require.NoError(t, err)
	ids := []string{}
	for _, s := range failed {
		ids = append(ids, s.EntityId)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
}
