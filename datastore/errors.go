package datastore

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// Postgres undefined_column.
	CodeUndefinedColumn = "42703"
	// PostgREST "column not found in schema cache".
	CodeSchemaCacheColumn = "PGRST204"
	// MySQL ER_BAD_FIELD_ERROR.
	mysqlUnknownColumn = 1054
)

// StoreError is the structured error a datastore reports.
type StoreError struct {
	Code    string
	Message string
	Details string
	Hint    string
	Err     error
}

func (e *StoreError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s (code %s)", msg, e.Code)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// UnknownColumn reports whether the error code or text marks a missing column.
func (e *StoreError) UnknownColumn() bool {
	switch e.Code {
	case CodeUndefinedColumn, CodeSchemaCacheColumn, strconv.Itoa(mysqlUnknownColumn):
		return true
	}
	text := strings.ToLower(e.Message + " " + e.Details + " " + e.Hint)
	if !strings.Contains(text, "column") {
		return false
	}
	return strings.Contains(text, "does not exist") ||
		strings.Contains(text, "unknown column") ||
		strings.Contains(text, "could not find")
}

// UnknownColumnError is returned when a write names a column the table lacks.
type UnknownColumnError struct {
	Table  string
	Column string
	Err    error
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q on %s", e.Column, e.Table)
}

func (e *UnknownColumnError) Unwrap() error { return e.Err }

var columnPatterns = []*regexp.Regexp{
	// 'foo' column / "foo" column
	regexp.MustCompile(`['"]([A-Za-z_][A-Za-z0-9_]*)['"]\s+column`),
	// column "foo" / column 'foo'
	regexp.MustCompile(`(?i)column\s+['"]([A-Za-z_][A-Za-z0-9_]*)['"]`),
	// column foo
	regexp.MustCompile(`(?i)column\s+([A-Za-z_][A-Za-z0-9_]*)`),
}

// ScrapeColumn looks for a column name in the message, details and hint of
// e, in that order, trying every pattern on each field. When accept is non-nil
// only names it accepts count as a match and the search continues past the
// others.
func ScrapeColumn(e *StoreError, accept func(string) bool) (string, bool) {
	for _, field := range []string{e.Message, e.Details, e.Hint} {
		if field == "" {
			continue
		}
		for _, re := range columnPatterns {
			for _, m := range re.FindAllStringSubmatch(field, -1) {
				name := m[1]
				if accept == nil || accept(name) {
					return name, true
				}
			}
		}
	}
	return "", false
}

// DroppableColumn returns the payload key an error says the table does not
// have. Typed errors are trusted first; text scraping is the fallback for
// stores that only hand back a StoreError.
func DroppableColumn(err error, payload Row) (string, bool) {
	inPayload := func(name string) bool {
		_, ok := payload[name]
		return ok
	}
	var unknown *UnknownColumnError
	if errors.As(err, &unknown) && inPayload(unknown.Column) {
		return unknown.Column, true
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr.UnknownColumn() {
		return ScrapeColumn(storeErr, inPayload)
	}
	return "", false
}

// translate maps driver errors onto the package error types.
func translate(table string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	var pgErr *pgconn.PgError
	var myErr *mysql.MySQLError
	switch {
	case errors.As(err, &pgErr):
		storeErr = &StoreError{Code: pgErr.Code, Message: pgErr.Message, Details: pgErr.Detail, Hint: pgErr.Hint, Err: err}
	case errors.As(err, &myErr):
		storeErr = &StoreError{Code: strconv.Itoa(int(myErr.Number)), Message: myErr.Message, Err: err}
	default:
		return err
	}
	if storeErr.UnknownColumn() {
		if col, ok := ScrapeColumn(storeErr, nil); ok {
			return &UnknownColumnError{Table: table, Column: col, Err: storeErr}
		}
	}
	return storeErr
}
