package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	row, err := store.Insert(ctx, "file_categories", Row{"org_id": "o1", "category_name": "Leases"})
	require.NoError(t, err)
	require.NotEmpty(t, row.ID())

	found, err := store.FindFold(ctx, "file_categories", Row{"org_id": "o1"}, "category_name", "LEASES")
	require.NoError(t, err)
	require.Len(t, found, 1)

	none, err := store.FindFold(ctx, "file_categories", Row{"org_id": "o2"}, "category_name", "leases")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.Update(ctx, "file_categories", row.ID(), Row{"external_category_id": int64(3)})
	require.NoError(t, err)
	one, err := FindOne(ctx, store, "file_categories", Row{"external_category_id": int64(3)})
	require.NoError(t, err)
	assert.Equal(t, row.ID(), one.ID())

	require.NoError(t, store.Delete(ctx, "file_categories", row.ID()))
	_, err = store.Get(ctx, "file_categories", row.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "file_categories", row.ID()), ErrNotFound)
}
