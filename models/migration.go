package models

import (
	"gorm.io/gorm"

	"github.com/mmdatafocus/property_backend/config"
	"github.com/sirupsen/logrus"
)

// AllModels lists every table the service owns, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&GlAccount{}, &BankAccount{},
		&Property{}, &Unit{}, &Owner{}, &Ownership{},
		&Vendor{}, &Bill{}, &Transaction{},
		&FileCategory{}, &FileRecord{},
		&SyncStatus{},
	}
}

// MigrateTable migrates each model on its own so one failing table does not
// block the rest; failures are logged as warnings.
func MigrateTable(db *gorm.DB) {
	logger := config.GetLogger()
	for _, m := range AllModels() {
		if err := db.AutoMigrate(m); err != nil {
			logger.WithFields(logrus.Fields{
				"field": "migrations",
				"model": modelName(db, m),
			}).Warn(err.Error())
		}
	}
}

func modelName(db *gorm.DB, m interface{}) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(m); err != nil || stmt.Schema == nil {
		return "unknown"
	}
	return stmt.Schema.Table
}
