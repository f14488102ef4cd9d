package models

// SyncWarning is a non-fatal problem attached to an otherwise successful
// response: a remote sync that failed, a dropped column, an id that could
// not be confirmed.
type SyncWarning struct {
	EntityType string `json:"entityType"`
	EntityId   string `json:"entityId,omitempty"`
	Message    string `json:"message"`
}
