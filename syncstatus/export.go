package syncstatus

import (
	"fmt"
	"io"
	"time"

	"github.com/mmdatafocus/property_backend/models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "SyncStatus"

var exportHeaders = []string{"EntityType", "EntityId", "ExternalId", "Status", "ErrorMessage", "LastSyncedAt", "UpdatedAt"}

// WriteXLSX writes rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []*models.SyncStatus) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return err
		}
	}
	for i, r := range rows {
		values := []interface{}{
			string(r.EntityType),
			r.EntityId,
			derefInt64(r.ExternalId),
			string(r.Status),
			derefString(r.ErrorMessage),
			formatTime(r.LastSyncedAt),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func derefInt64(v *int64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
