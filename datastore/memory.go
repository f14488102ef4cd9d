package datastore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Datastore. It backs DB_DRIVER=memory and the
// tests. Tables configured with AllowColumns reject unknown columns the way
// a PostgREST-style backend does, which makes schema drift reproducible.
type MemoryStore struct {
	mu      sync.Mutex
	tables  map[string]map[string]Row
	order   map[string][]string
	allowed map[string]map[string]bool
	fail    map[string][]error
	now     func() time.Time

	// Calls counts operations per "op:table", e.g. "insert:units".
	Calls map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:  map[string]map[string]Row{},
		order:   map[string][]string{},
		allowed: map[string]map[string]bool{},
		fail:    map[string][]error{},
		now:     time.Now,
		Calls:   map[string]int{},
	}
}

// AllowColumns restricts table to the given columns plus id and timestamps.
func (m *MemoryStore) AllowColumns(table string, columns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := map[string]bool{"id": true, "created_at": true, "updated_at": true}
	for _, c := range columns {
		set[c] = true
	}
	m.allowed[table] = set
}

// FailNext queues errors returned by the next operations of kind op
// ("insert", "update", "delete", "get", "find") on table.
func (m *MemoryStore) FailNext(op, table string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + ":" + table
	m.fail[key] = append(m.fail[key], errs...)
}

// Seed stores row as is, without column checks.
func (m *MemoryStore) Seed(table string, row Row) Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := stampInsert(row, m.now())
	m.put(table, stored)
	return stored.Clone()
}

// Rows returns every row of table in insertion order.
func (m *MemoryStore) Rows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, 0, len(m.order[table]))
	for _, id := range m.order[table] {
		out = append(out, m.tables[table][id].Clone())
	}
	return out
}

func (m *MemoryStore) put(table string, row Row) {
	if m.tables[table] == nil {
		m.tables[table] = map[string]Row{}
	}
	id := row.ID()
	if _, exists := m.tables[table][id]; !exists {
		m.order[table] = append(m.order[table], id)
	}
	m.tables[table][id] = row
}

func (m *MemoryStore) enter(op, table string) error {
	key := op + ":" + table
	m.Calls[key]++
	if q := m.fail[key]; len(q) > 0 {
		m.fail[key] = q[1:]
		return q[0]
	}
	return nil
}

func (m *MemoryStore) checkColumns(table string, row Row) error {
	allowed, ok := m.allowed[table]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowed[k] {
			return &StoreError{
				Code:    CodeSchemaCacheColumn,
				Message: fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", k, table),
			}
		}
	}
	return nil
}

func (m *MemoryStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("insert", table); err != nil {
		return nil, err
	}
	stored := stampInsert(row, m.now())
	if err := m.checkColumns(table, stored); err != nil {
		return nil, err
	}
	if _, exists := m.tables[table][stored.ID()]; exists {
		return nil, &StoreError{Code: "23505", Message: fmt.Sprintf("duplicate key value violates unique constraint on %s", table)}
	}
	m.put(table, stored)
	return stored.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, table string, id string, patch Row) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("update", table); err != nil {
		return nil, err
	}
	existing, ok := m.tables[table][id]
	if !ok {
		return nil, ErrNotFound
	}
	payload := patch.Clone()
	delete(payload, "id")
	if _, ok := payload["updated_at"]; !ok {
		payload["updated_at"] = m.now()
	}
	if err := m.checkColumns(table, payload); err != nil {
		return nil, err
	}
	updated := existing.Clone()
	for k, v := range payload {
		updated[k] = v
	}
	m.tables[table][id] = updated
	return updated.Clone(), nil
}

func (m *MemoryStore) Delete(ctx context.Context, table string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("delete", table); err != nil {
		return err
	}
	if _, ok := m.tables[table][id]; !ok {
		return ErrNotFound
	}
	delete(m.tables[table], id)
	ids := m.order[table][:0]
	for _, existing := range m.order[table] {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	m.order[table] = ids
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, table string, id string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("get", table); err != nil {
		return nil, err
	}
	row, ok := m.tables[table][id]
	if !ok {
		return nil, ErrNotFound
	}
	return row.Clone(), nil
}

func (m *MemoryStore) Find(ctx context.Context, table string, where Row) ([]Row, error) {
	return m.findWhere(table, where, func(Row) bool { return true })
}

func (m *MemoryStore) FindFold(ctx context.Context, table string, where Row, column string, value string) ([]Row, error) {
	return m.findWhere(table, where, func(r Row) bool {
		s, ok := r[column].(string)
		return ok && strings.EqualFold(s, value)
	})
}

func (m *MemoryStore) findWhere(table string, where Row, match func(Row) bool) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("find", table); err != nil {
		return nil, err
	}
	var out []Row
	for _, id := range m.order[table] {
		row := m.tables[table][id]
		if rowMatches(row, where) && match(row) {
			out = append(out, row.Clone())
		}
	}
	return out, nil
}

func rowMatches(row Row, where Row) bool {
	for k, want := range where {
		if fmt.Sprint(deref(row[k])) != fmt.Sprint(deref(want)) {
			return false
		}
	}
	return true
}

func deref(v any) any {
	switch p := v.(type) {
	case *string:
		if p != nil {
			return *p
		}
		return nil
	case *int64:
		if p != nil {
			return *p
		}
		return nil
	}
	return v
}
