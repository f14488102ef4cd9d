package datastore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore runs row operations against a gorm connection using map payloads,
// so writes are not bound to the compiled model structs.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	payload := stampInsert(row, s.now())
	if err := s.db.WithContext(ctx).Table(table).Create(map[string]any(payload)).Error; err != nil {
		return nil, translate(table, err)
	}
	return s.Get(ctx, table, payload.ID())
}

func (s *GormStore) Update(ctx context.Context, table string, id string, patch Row) (Row, error) {
	payload := patch.Clone()
	delete(payload, "id")
	if _, ok := payload["updated_at"]; !ok {
		payload["updated_at"] = s.now()
	}
	if err := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(map[string]any(payload)).Error; err != nil {
		return nil, translate(table, err)
	}
	return s.Get(ctx, table, id)
}

func (s *GormStore) Delete(ctx context.Context, table string, id string) error {
	res := s.db.WithContext(ctx).Exec("DELETE FROM ? WHERE id = ?", clause.Table{Name: table}, id)
	if res.Error != nil {
		return translate(table, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, table string, id string) (Row, error) {
	out := map[string]any{}
	err := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translate(table, err)
	}
	return Row(out), nil
}

func (s *GormStore) Find(ctx context.Context, table string, where Row) ([]Row, error) {
	return s.find(s.db.WithContext(ctx).Table(table), table, where)
}

func (s *GormStore) FindFold(ctx context.Context, table string, where Row, column string, value string) ([]Row, error) {
	q := s.db.WithContext(ctx).Table(table).
		Where(clause.Expr{SQL: "LOWER(?) = LOWER(?)", Vars: []interface{}{clause.Column{Name: column}, value}})
	return s.find(q, table, where)
}

func (s *GormStore) find(q *gorm.DB, table string, where Row) ([]Row, error) {
	if len(where) > 0 {
		q = q.Where(map[string]any(where))
	}
	var found []map[string]any
	if err := q.Find(&found).Error; err != nil {
		return nil, translate(table, err)
	}
	rows := make([]Row, 0, len(found))
	for _, r := range found {
		rows = append(rows, Row(r))
	}
	return rows, nil
}
