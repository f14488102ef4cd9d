package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorMessage returns err's message, or "" for a nil error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ValidationError rejects a request before anything is written.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(keys, ", "))
}

func NewValidationError(message string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// LocalPersistenceError is a failed local write; the request is aborted and
// whatever it wrote so far is compensated.
type LocalPersistenceError struct {
	Step string
	Err  error
}

func (e *LocalPersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *LocalPersistenceError) Unwrap() error { return e.Err }
