package rowsync

import (
	"fmt"

	"github.com/agribenchmark/farmsync/record"
)

type Group struct {
	Key  string
	Rows []record.Record
}

// FormState is what an editing page binds its inputs to.
type FormState struct {
	Scope  string
	Groups []Group
}

// Rows flattens the groups in order.
func (s FormState) Rows() []record.Record {
	var out []record.Record
	for _, g := range s.Groups {
		out = append(out, g.Rows...)
	}
	return out
}

func (s FormState) Group(key string) (Group, bool) {
	for _, g := range s.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

func (s FormState) clone() FormState {
	out := FormState{Scope: s.Scope, Groups: make([]Group, len(s.Groups))}
	for i, g := range s.Groups {
		out.Groups[i] = Group{Key: g.Key, Rows: record.CloneAll(g.Rows)}
	}
	return out
}

// ToFormDefaults turns a fetched row set into form state. An empty row set
// gets DefaultRows blank rows per group, each with a fresh id.
func (p Page) ToFormDefaults(rows []record.Record, scope string) FormState {
	state := FormState{Scope: scope}
	if len(rows) == 0 {
		for _, key := range p.groupKeys() {
			g := Group{Key: key}
			for i := 0; i < p.DefaultRows; i++ {
				g.Rows = append(g.Rows, p.BlankRow(key, scope))
			}
			state.Groups = append(state.Groups, g)
		}
		return state
	}

	if p.GroupBy == "" {
		state.Groups = []Group{{Rows: record.CloneAll(rows)}}
		return state
	}

	byKey := make(map[string]int)
	for _, key := range p.Groups {
		byKey[key] = len(state.Groups)
		state.Groups = append(state.Groups, Group{Key: key})
	}
	for _, row := range rows {
		key := fmt.Sprint(row[p.GroupBy])
		if row[p.GroupBy] == nil {
			key = ""
		}
		idx, ok := byKey[key]
		if !ok {
			idx = len(state.Groups)
			byKey[key] = idx
			state.Groups = append(state.Groups, Group{Key: key})
		}
		state.Groups[idx].Rows = append(state.Groups[idx].Rows, row.Clone())
	}
	return state
}

// ToPersistedRows flattens form state back to one record per row, stamping
// the form's scope on each.
func (p Page) ToPersistedRows(state FormState) []record.Record {
	out := make([]record.Record, 0)
	for _, g := range state.Groups {
		for _, row := range g.Rows {
			r := row.WithScope(state.Scope)
			if p.GroupBy != "" {
				r[p.GroupBy] = g.Key
			}
			out = append(out, r)
		}
	}
	return out
}

// AppendRow adds a blank row to group and returns the new state and row.
func (p Page) AppendRow(state FormState, group string) (FormState, record.Record) {
	out := state.clone()
	row := p.BlankRow(group, state.Scope)
	for i := range out.Groups {
		if out.Groups[i].Key == group {
			out.Groups[i].Rows = append(out.Groups[i].Rows, row)
			return out, row
		}
	}
	out.Groups = append(out.Groups, Group{Key: group, Rows: []record.Record{row}})
	return out, row
}

// without returns state minus the row with id, plus where it was.
func (s FormState) without(id string) (FormState, record.Record, int, int, bool) {
	out := s.clone()
	for gi, g := range out.Groups {
		for ri, row := range g.Rows {
			if row.ID() == id {
				out.Groups[gi].Rows = append(g.Rows[:ri:ri], g.Rows[ri+1:]...)
				return out, row, gi, ri, true
			}
		}
	}
	return s, nil, 0, 0, false
}

func (s FormState) insertAt(gi, ri int, row record.Record) FormState {
	out := s.clone()
	rows := out.Groups[gi].Rows
	rows = append(rows[:ri:ri], append([]record.Record{row}, rows[ri:]...)...)
	out.Groups[gi].Rows = rows
	return out
}
