package rowsync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
)

type FieldKind int

const (
	Text FieldKind = iota
	Number
	Bool
)

type Field struct {
	Name string
	Kind FieldKind
	// Default overrides the kind's zero value in synthesized rows.
	Default any
}

func (f Field) Zero() any {
	if f.Default != nil {
		return f.Default
	}
	switch f.Kind {
	case Number:
		return float64(0)
	case Bool:
		return false
	default:
		return ""
	}
}

// Normalize coerces a form value to the field's wire type. Blank numbers are 0.
func (f Field) Normalize(v any) (any, error) {
	switch f.Kind {
	case Number:
		if v == nil {
			return float64(0), nil
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return float64(0), nil
		}
		d, err := utils.UnmarshalDecimal(v)
		if err != nil {
			return nil, err
		}
		return d.InexactFloat64(), nil
	case Bool:
		switch b := v.(type) {
		case nil:
			return false, nil
		case bool:
			return b, nil
		case string:
			if strings.TrimSpace(b) == "" {
				return false, nil
			}
			return strconv.ParseBool(strings.TrimSpace(b))
		default:
			return nil, fmt.Errorf("invalid value %v", v)
		}
	default:
		switch s := v.(type) {
		case nil:
			return "", nil
		case string:
			return s, nil
		default:
			return fmt.Sprint(s), nil
		}
	}
}

// Page describes one editing page: the backend collection it writes and the
// shape of its rows.
type Page struct {
	Name   string
	Path   string
	Fields []Field
	// DefaultRows is how many blank rows an empty row set starts with,
	// per group on grouped pages.
	DefaultRows int
	// GroupBy names the field splitting rows into sub-tables ("source" on
	// feed pages). Empty for flat pages.
	GroupBy string
	Groups  []string
	// Validate checks persisted rows against the page's typed schema.
	Validate func(rows []record.Record) error
}

func (p Page) Field(name string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// BlankRow synthesizes a new row with a fresh id and zero field values.
func (p Page) BlankRow(group, scope string) record.Record {
	row := record.Record{
		record.FieldId:     record.NewID(),
		record.FieldFarmId: scope,
	}
	for _, f := range p.Fields {
		if f.Name == record.FieldId || f.Name == record.FieldFarmId {
			continue
		}
		row[f.Name] = f.Zero()
	}
	if p.GroupBy != "" {
		row[p.GroupBy] = group
	}
	return row
}

func (p Page) groupKeys() []string {
	if p.GroupBy == "" {
		return []string{""}
	}
	return p.Groups
}
