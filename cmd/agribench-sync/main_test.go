package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestReadPushRows(t *testing.T) {
	rows, err := readPushRows(writeFile(t, `[{"id":"a","crop":"wheat"}]`))
	if err != nil {
		t.Fatalf("readPushRows: %v", err)
	}
	if len(rows) != 1 || rows[0].ID() != "a" {
		t.Fatalf("unexpected rows %v", rows)
	}

	for _, content := range []string{`[]`, `null`} {
		if _, err := readPushRows(writeFile(t, content)); !errors.Is(err, errNoPushRows) {
			t.Fatalf("%s: expected errNoPushRows, got %v", content, err)
		}
	}
	if _, err := readPushRows(writeFile(t, `{"id":"a"}`)); err == nil {
		t.Fatal("expected error for a single object")
	}
}
