package datastore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_DropsUnknownColumnAndRetries(t *testing.T) {
	store := NewMemoryStore()
	store.AllowColumns("units", "property_id", "unit_number", "market_rent")
	w := NewWriter(store)

	res, err := w.Insert(context.Background(), "units", Row{
		"property_id": "p1",
		"unit_number": "1A",
		"market_rent": "1200",
		"foo":         "bar",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, res.DroppedColumns)
	assert.NotContains(t, res.Row, "foo")
	assert.Equal(t, "p1", res.Row["property_id"])
	assert.Equal(t, "1A", res.Row["unit_number"])
	assert.Equal(t, "1200", res.Row["market_rent"])
	assert.Equal(t, 2, store.Calls["insert:units"])
}

func TestWriter_DropsSecondColumnOnSecondFailure(t *testing.T) {
	store := NewMemoryStore()
	store.FailNext("insert", "owners",
		&StoreError{Code: CodeUndefinedColumn, Message: `column "foo" of relation "owners" does not exist`},
		&StoreError{Code: CodeUndefinedColumn, Message: `column "bar" of relation "owners" does not exist`},
	)
	w := NewWriter(store)

	res, err := w.Insert(context.Background(), "owners", Row{"first_name": "Ann", "foo": 1, "bar": 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar"}, res.DroppedColumns)
	assert.Equal(t, "Ann", res.Row["first_name"])
	assert.NotContains(t, res.Row, "foo")
	assert.NotContains(t, res.Row, "bar")
	assert.Equal(t, 3, store.Calls["insert:owners"])
}

func TestWriter_StopsAfterFiveAttempts(t *testing.T) {
	store := NewMemoryStore()
	payload := Row{"name": "x"}
	var errs []error
	for _, col := range []string{"a", "b", "c", "d", "e", "f"} {
		payload[col] = 1
		errs = append(errs, &UnknownColumnError{Table: "properties", Column: col})
	}
	store.FailNext("insert", "properties", errs...)
	w := NewWriter(store)

	_, err := w.Insert(context.Background(), "properties", payload)
	require.Error(t, err)
	var unknown *UnknownColumnError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, MaxWriteAttempts, store.Calls["insert:properties"])
}

func TestWriter_OtherErrorsReturnImmediately(t *testing.T) {
	store := NewMemoryStore()
	boom := errors.New("connection reset")
	store.FailNext("insert", "properties", boom)
	w := NewWriter(store)

	_, err := w.Insert(context.Background(), "properties", Row{"name": "x"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.Calls["insert:properties"])
}

func TestWriter_UnknownColumnNotInPayloadIsFatal(t *testing.T) {
	store := NewMemoryStore()
	store.FailNext("update", "owners", &UnknownColumnError{Table: "owners", Column: "zzz"})
	seeded := store.Seed("owners", Row{"first_name": "Ann"})
	w := NewWriter(store)

	_, err := w.Update(context.Background(), "owners", seeded.ID(), Row{"external_owner_id": int64(5)})
	require.Error(t, err)
	assert.Equal(t, 1, store.Calls["update:owners"])
}

func TestWriter_UpdateDropsColumn(t *testing.T) {
	store := NewMemoryStore()
	store.AllowColumns("files", "file_name", "external_file_id")
	seeded := store.Seed("files", Row{"file_name": "a.pdf"})
	w := NewWriter(store)

	res, err := w.Update(context.Background(), "files", seeded.ID(), Row{
		"external_file_id": int64(7),
		"external_href":    "https://remote/files/7",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"external_href"}, res.DroppedColumns)
	assert.Equal(t, int64(7), res.Row["external_file_id"])
	assert.Equal(t, "a.pdf", res.Row["file_name"])
}
