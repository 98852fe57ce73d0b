package rowsync

import (
	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
)

// ValidateRows decodes every row into T and runs the shared validator on it.
// Use it as a Page's Validate func for pages with a typed row schema.
func ValidateRows[T any](rows []record.Record) error {
	fields := make(map[string]string)
	for _, row := range rows {
		var typed T
		raw, err := utils.MarshalToJSON(row)
		if err == nil {
			err = utils.UnmarshalFromJSON([]byte(raw), &typed)
		}
		if err != nil {
			fields[row.ID()] = "decode"
			continue
		}
		if err := utils.ValidateStruct(typed); err != nil {
			failed := utils.ProcessValidationErrors(err)
			if failed == nil {
				return err
			}
			for field, tag := range failed {
				fields[row.ID()+"."+field] = tag
			}
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
