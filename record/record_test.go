package record

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestMergeSubmittedFieldsWin(t *testing.T) {
	prev := Record{"id": "X", "a": 0, "b": 9}
	next := Record{"id": "X", "a": 1}

	got := Merge(prev, next)
	want := Record{"id": "X", "a": 1, "b": 9}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Merge mismatch (-want +got):\n%s", diff)
	}
	if prev["a"] != 0 {
		t.Fatalf("Merge mutated prev: %v", prev)
	}
}

func TestIDNormalizesNonStringIdentifiers(t *testing.T) {
	cases := []struct {
		in   Record
		want string
	}{
		{nil, ""},
		{Record{}, ""},
		{Record{"id": "abc"}, "abc"},
		{Record{"id": float64(12)}, "12"},
	}
	for _, tc := range cases {
		if got := tc.in.ID(); got != tc.want {
			t.Fatalf("ID(%v) expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestEnsureIDKeepsExistingIdentifier(t *testing.T) {
	r := Record{"id": "keep-me"}
	if r.EnsureID() {
		t.Fatalf("EnsureID replaced an existing id")
	}
	if r.ID() != "keep-me" {
		t.Fatalf("expected keep-me, got %s", r.ID())
	}

	blank := Record{"a": 1}
	if !blank.EnsureID() {
		t.Fatalf("EnsureID did not stamp a blank record")
	}
	if _, err := uuid.Parse(blank.ID()); err != nil {
		t.Fatalf("minted id is not a uuid: %v", err)
	}
}

func TestWithScopeDoesNotAlias(t *testing.T) {
	r := Record{"id": "1"}
	scoped := r.WithScope("DE_2024_x")
	if _, ok := r[FieldFarmId]; ok {
		t.Fatalf("WithScope mutated the receiver")
	}
	if scoped.FarmId() != "DE_2024_x" {
		t.Fatalf("expected farm id on copy, got %q", scoped.FarmId())
	}
}

func TestCloneAllIsDeepAtRowLevel(t *testing.T) {
	rows := []Record{{"id": "1", "a": 1}}
	cp := CloneAll(rows)
	cp[0]["a"] = 2
	if rows[0]["a"] != 1 {
		t.Fatalf("CloneAll shares row maps")
	}
	if CloneAll(nil) != nil {
		t.Fatalf("CloneAll(nil) should stay nil")
	}
}
