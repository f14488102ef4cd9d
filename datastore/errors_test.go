package datastore

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeColumn_Patterns(t *testing.T) {
	cases := []struct {
		name string
		err  *StoreError
		want string
	}{
		{"quoted before column", &StoreError{Message: "Could not find the 'foo' column of 'units' in the schema cache"}, "foo"},
		{"column double quoted", &StoreError{Message: `column "bar" of relation "units" does not exist`}, "bar"},
		{"column single quoted", &StoreError{Message: "Unknown column 'baz' in 'field list'"}, "baz"},
		{"column bare", &StoreError{Message: "no such column qux"}, "qux"},
		{"details only", &StoreError{Message: "write failed", Details: `column "zip" does not exist`}, "zip"},
		{"hint only", &StoreError{Message: "write failed", Hint: "Perhaps you meant column tax_city"}, "tax_city"},
	}
	for _, tc := range cases {
		got, ok := ScrapeColumn(tc.err, nil)
		if !ok || got != tc.want {
			t.Fatalf("%s: expected %q, got %q (ok=%v)", tc.name, tc.want, got, ok)
		}
	}
}

func TestScrapeColumn_MessageBeforeDetails(t *testing.T) {
	err := &StoreError{Message: `column "first" does not exist`, Details: `column "second" does not exist`}
	got, ok := ScrapeColumn(err, nil)
	require.True(t, ok)
	assert.Equal(t, "first", got)
}

func TestDroppableColumn_SkipsNamesOutsidePayload(t *testing.T) {
	err := &StoreError{
		Code:    CodeUndefinedColumn,
		Message: `column "units" does not exist`,
		Hint:    `column "foo" is not defined`,
	}
	got, ok := DroppableColumn(err, Row{"foo": 1, "unit_number": "1A"})
	require.True(t, ok)
	assert.Equal(t, "foo", got)

	_, ok = DroppableColumn(err, Row{"unit_number": "1A"})
	assert.False(t, ok)
}

func TestDroppableColumn_IgnoresOtherErrorClasses(t *testing.T) {
	err := &StoreError{Code: "23505", Message: `duplicate key value violates unique constraint on column "id"`}
	_, ok := DroppableColumn(err, Row{"id": "x"})
	assert.False(t, ok)

	_, ok = DroppableColumn(errors.New(`column "foo" does not exist`), Row{"foo": 1})
	assert.False(t, ok, "untyped errors are not scraped")
}

func TestDroppableColumn_TypedError(t *testing.T) {
	err := &UnknownColumnError{Table: "units", Column: "foo"}
	got, ok := DroppableColumn(err, Row{"foo": 1})
	require.True(t, ok)
	assert.Equal(t, "foo", got)
}

func TestTranslate_DriverErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42703", Message: `column "foo" of relation "units" does not exist`}
	var unknown *UnknownColumnError
	require.ErrorAs(t, translate("units", pgErr), &unknown)
	assert.Equal(t, "foo", unknown.Column)
	assert.Equal(t, "units", unknown.Table)

	myErr := &mysql.MySQLError{Number: 1054, Message: "Unknown column 'bar' in 'field list'"}
	require.ErrorAs(t, translate("owners", myErr), &unknown)
	assert.Equal(t, "bar", unknown.Column)

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	var storeErr *StoreError
	require.ErrorAs(t, translate("owners", dup), &storeErr)
	assert.Equal(t, "1062", storeErr.Code)
	assert.False(t, errors.As(translate("owners", dup), &unknown))
}
