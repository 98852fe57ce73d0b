package config

import (
	"os"
	"strings"
)

// AtomicUpsert tells the upsert reconciler the backend creates on PUT, so the
// HEAD probe is skipped.
//
// Set via env:
// - ATOMIC_UPSERT=true
func AtomicUpsert() bool {
	return envTruthy("ATOMIC_UPSERT", false)
}

// RestoreRowOnDeleteFailure puts a removed form row back when its DELETE fails.
// Defaults to on; set RESTORE_ROW_ON_DELETE_FAILURE=false to only log.
func RestoreRowOnDeleteFailure() bool {
	return envTruthy("RESTORE_ROW_ON_DELETE_FAILURE", true)
}

func envTruthy(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
