package record

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	FieldId     = "id"
	FieldFarmId = "farm_id"
)

// Record is one backend row. Shape is owned by the backend; only "id" and
// "farm_id" are interpreted here.
type Record map[string]any

// NewID mints a client-side record identifier.
func NewID() string {
	return uuid.NewString()
}

// ID returns the record identifier, or "" when the record has none.
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	switch v := r[FieldId].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (r Record) FarmId() string {
	v, _ := r[FieldFarmId].(string)
	return v
}

// Clone is a shallow copy; nested values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new record holding prev overlaid with every field of next.
// Fields present only in prev survive.
func Merge(prev, next Record) Record {
	out := make(Record, len(prev)+len(next))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}

// WithScope returns a copy of r carrying the given farm id.
func (r Record) WithScope(farmId string) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	out[FieldFarmId] = farmId
	return out
}

// EnsureID stamps a fresh identifier when r has none and reports whether it did.
func (r Record) EnsureID() bool {
	if r.ID() != "" {
		return false
	}
	r[FieldId] = NewID()
	return true
}

// CloneAll copies the slice and every record in it.
func CloneAll(rows []Record) []Record {
	if rows == nil {
		return nil
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// IndexByID maps identifiers to records. Rows without an id are skipped.
func IndexByID(rows []Record) map[string]Record {
	idx := make(map[string]Record, len(rows))
	for _, r := range rows {
		if id := r.ID(); id != "" {
			idx[id] = r
		}
	}
	return idx
}
