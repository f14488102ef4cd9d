package models

// SyncStatusType is the per-entity remote mirror state.
type SyncStatusType string

const (
	SyncStatusPending SyncStatusType = "pending"
	SyncStatusSyncing SyncStatusType = "syncing"
	SyncStatusSynced  SyncStatusType = "synced"
	SyncStatusFailed  SyncStatusType = "failed"
)

func (s SyncStatusType) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSyncing, SyncStatusSynced, SyncStatusFailed:
		return true
	}
	return false
}

// SyncEntityType is the small vocabulary used to key sync status rows.
// Rental covers both properties and units, matching the remote system.
type SyncEntityType string

const (
	SyncEntityRental      SyncEntityType = "Rental"
	SyncEntityRentalOwner SyncEntityType = "RentalOwner"
	SyncEntityFile        SyncEntityType = "File"
	SyncEntityBill        SyncEntityType = "Bill"
)

func (t SyncEntityType) IsValid() bool {
	switch t {
	case SyncEntityRental, SyncEntityRentalOwner, SyncEntityFile, SyncEntityBill:
		return true
	}
	return false
}

// EntityType names a local entity kind that attachments can hang off.
type EntityType string

const (
	EntityTypeProperty    EntityType = "property"
	EntityTypeUnit        EntityType = "unit"
	EntityTypeOwner       EntityType = "owner"
	EntityTypeBill        EntityType = "bill"
	EntityTypeTransaction EntityType = "transaction"
)

// EntityBinding describes where an entity lives locally and how the remote
// system refers to it.
type EntityBinding struct {
	Table            string
	ExternalIdColumn string
	// RemoteFileEntityType is the entity type the remote files API expects.
	RemoteFileEntityType string
}

var entityBindings = map[EntityType]EntityBinding{
	EntityTypeProperty:    {Table: TableProperties, ExternalIdColumn: "external_property_id", RemoteFileEntityType: "Rental"},
	EntityTypeUnit:        {Table: TableUnits, ExternalIdColumn: "external_unit_id", RemoteFileEntityType: "RentalUnit"},
	EntityTypeOwner:       {Table: TableOwners, ExternalIdColumn: "external_owner_id", RemoteFileEntityType: "RentalOwner"},
	EntityTypeBill:        {Table: TableBills, ExternalIdColumn: "external_bill_id", RemoteFileEntityType: "Bill"},
	EntityTypeTransaction: {Table: TableTransactions, ExternalIdColumn: "external_transaction_id", RemoteFileEntityType: "Account"},
}

// BindingFor returns the binding for t.
func BindingFor(t EntityType) (EntityBinding, bool) {
	b, ok := entityBindings[t]
	return b, ok
}

const (
	TableProperties     = "properties"
	TableUnits          = "units"
	TableOwners         = "owners"
	TableOwnerships     = "ownerships"
	TableBankAccounts   = "bank_accounts"
	TableGlAccounts     = "gl_accounts"
	TableFileCategories = "file_categories"
	TableVendors        = "vendors"
	TableBills          = "bills"
	TableTransactions   = "transactions"
	TableFiles          = "files"
	TableSyncStatuses   = "sync_statuses"
)
