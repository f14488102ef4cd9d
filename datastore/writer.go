package datastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/sirupsen/logrus"
)

// MaxWriteAttempts bounds the drop-and-retry loop of a single write.
const MaxWriteAttempts = 5

// WriteResult is a persisted row plus any payload columns the table refused.
type WriteResult struct {
	Row            Row
	DroppedColumns []string
}

// Writer persists rows and tolerates columns the live schema does not have:
// an unknown-column error naming a payload key drops that key and retries.
// Dropped columns are logged as warnings and reported back to the caller.
type Writer struct {
	store  Datastore
	policy utils.RetryPolicy
	logger *logrus.Logger
}

func NewWriter(store Datastore) *Writer {
	return &Writer{
		store: store,
		policy: utils.RetryPolicy{
			MaxAttempts: MaxWriteAttempts,
			IsRetryable: func(err error) bool {
				var dropped *droppedColumnError
				return errors.As(err, &dropped)
			},
		},
		logger: config.GetLogger(),
	}
}

// Store exposes the underlying datastore for reads and deletes.
func (w *Writer) Store() Datastore {
	return w.store
}

type droppedColumnError struct {
	column string
	err    error
}

func (e *droppedColumnError) Error() string {
	return fmt.Sprintf("dropped column %q: %v", e.column, e.err)
}

func (e *droppedColumnError) Unwrap() error { return e.err }

func (w *Writer) Insert(ctx context.Context, table string, payload Row) (*WriteResult, error) {
	return w.write(ctx, "insert", table, payload, func(p Row) (Row, error) {
		return w.store.Insert(ctx, table, p)
	})
}

func (w *Writer) Update(ctx context.Context, table string, id string, patch Row) (*WriteResult, error) {
	return w.write(ctx, "update", table, patch, func(p Row) (Row, error) {
		return w.store.Update(ctx, table, id, p)
	})
}

func (w *Writer) write(ctx context.Context, op string, table string, payload Row, do func(Row) (Row, error)) (*WriteResult, error) {
	current := payload.Clone()
	var dropped []string
	var row Row
	err := w.policy.Do(ctx, func(attempt int) error {
		var err error
		row, err = do(current)
		if err == nil {
			return nil
		}
		column, ok := DroppableColumn(err, current)
		if !ok {
			return err
		}
		delete(current, column)
		dropped = append(dropped, column)
		w.logger.WithFields(logrus.Fields{
			"module":  "datastore",
			"op":      op,
			"table":   table,
			"column":  column,
			"attempt": attempt + 1,
		}).Warn("column not accepted by live schema; retrying without it")
		return &droppedColumnError{column: column, err: err}
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, table, err)
	}
	return &WriteResult{Row: row, DroppedColumns: dropped}, nil
}
