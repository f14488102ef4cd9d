package syncstatus

import (
	"bytes"
	"testing"
	"time"

	"github.com/mmdatafocus/property_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	msg := "422 missing Address.City"
	ext := int64(500)
	rows := []*models.SyncStatus{
		{EntityType: models.SyncEntityRental, EntityId: "p1", Status: models.SyncStatusFailed, ErrorMessage: &msg, UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{EntityType: models.SyncEntityFile, EntityId: "f1", ExternalId: &ext, Status: models.SyncStatusSynced},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, exportHeaders, got[0])
	assert.Equal(t, "p1", got[1][1])
	assert.Equal(t, msg, got[1][4])
	assert.Equal(t, "2026-01-02T03:04:05Z", got[1][6])
	assert.Equal(t, "500", got[2][2])
}
