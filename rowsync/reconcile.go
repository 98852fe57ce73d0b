package rowsync

import "github.com/agribenchmark/farmsync/record"

// Reconcile merges each submitted row over the previously cached row with the
// same id, so fields the form does not edit survive. Rows without a previous
// match, including rows without an id, pass through unchanged. Order follows
// submitted.
func Reconcile(submitted, previous []record.Record) []record.Record {
	prev := record.IndexByID(previous)
	out := make([]record.Record, 0, len(submitted))
	for _, row := range submitted {
		if old, ok := prev[row.ID()]; ok && row.ID() != "" {
			out = append(out, record.Merge(old, row))
			continue
		}
		out = append(out, row.Clone())
	}
	return out
}
