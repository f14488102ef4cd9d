package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Row is a loosely typed table row keyed by column name.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the row's id column as a string, or "" when absent.
func (r Row) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

var ErrNotFound = errors.New("datastore: row not found")

// Datastore is the persistence surface the sync engine writes through.
// Implementations translate driver errors into *UnknownColumnError when a
// write names a column the live table does not have, and into *StoreError
// for everything else they can describe.
type Datastore interface {
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, id string, patch Row) (Row, error)
	Delete(ctx context.Context, table string, id string) error
	Get(ctx context.Context, table string, id string) (Row, error)
	Find(ctx context.Context, table string, where Row) ([]Row, error)
	// FindFold returns rows matching where whose column equals value ignoring case.
	FindFold(ctx context.Context, table string, where Row, column string, value string) ([]Row, error)
}

// FindOne returns the first row matching where, or ErrNotFound.
func FindOne(ctx context.Context, store Datastore, table string, where Row) (Row, error) {
	rows, err := store.Find(ctx, table, where)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// stampInsert fills id and timestamps the caller left out.
func stampInsert(row Row, now time.Time) Row {
	out := row.Clone()
	if out.ID() == "" {
		out["id"] = uuid.NewString()
	}
	if _, ok := out["created_at"]; !ok {
		out["created_at"] = now
	}
	if _, ok := out["updated_at"]; !ok {
		out["updated_at"] = now
	}
	return out
}
