package rowsync

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNoFarmSelected = errors.New("no farm selected")
	ErrRowNotInForm   = errors.New("row not in form")
)

// ValidationError reports rows rejected before any request was sent.
// Fields maps "<row id>.<field>" to the failed rule.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid rows: " + strings.Join(parts, ", ")
}

type RowError struct {
	ID  string
	Err error
}

// BatchError is returned when at least one row of a submit failed. Rows in
// Succeeded were written to the backend even though the batch failed.
type BatchError struct {
	Path      string
	Scope     string
	Failed    []RowError
	Succeeded []string
}

func (e *BatchError) Error() string {
	total := len(e.Failed) + len(e.Succeeded)
	msg := fmt.Sprintf("submit %s for %s: %d of %d rows failed", e.Path, e.Scope, len(e.Failed), total)
	if len(e.Failed) > 0 {
		msg += ": " + e.Failed[0].Err.Error()
	}
	return msg
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}
