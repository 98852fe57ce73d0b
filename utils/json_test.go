package utils

import (
	"path/filepath"
	"testing"
)

func TestJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	in := []map[string]any{{"id": "a", "area_ha": 1.5}, {"id": "b"}}

	if err := WriteJSONFile(path, in); err != nil {
		t.Fatalf("WriteJSONFile: %v", err)
	}
	out, err := ReadJSONFile[[]map[string]any](path)
	if err != nil {
		t.Fatalf("ReadJSONFile: %v", err)
	}
	if len(out) != 2 || out[0]["id"] != "a" || out[0]["area_ha"] != 1.5 {
		t.Fatalf("unexpected rows %v", out)
	}
}

func TestReadJSONFileMissing(t *testing.T) {
	if _, err := ReadJSONFile[[]map[string]any](filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
