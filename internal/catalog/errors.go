package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBusy             = errors.New("catalog: a submission is already in progress")
	ErrNotConfirmed     = errors.New("catalog: delete was not confirmed")
	ErrValidation       = errors.New("catalog: draft failed validation")
	ErrStoreUnavailable = errors.New("catalog: store unavailable")
)

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError is returned by Submit before the store is contacted.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("invalid draft: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a failed persistent store call. The store's message is kept as is.
type StoreError struct {
	Op   string
	Kind string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
