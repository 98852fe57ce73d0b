package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/google/go-cmp/cmp"
	"gorm.io/gorm"
)

func TestMemoryStoreKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, id := range []string{"c", "a", "b"} {
		if _, err := s.Create(ctx, "landuse", record.Record{"id": id, "farm_id": "F"}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	if _, _, err := s.Put(ctx, "landuse", "a", record.Record{"id": "a", "farm_id": "F", "x": 1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rows, _ := s.ListByFarm(ctx, "landuse", "F")
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.ID())
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	in := record.Record{"id": "1", "v": 1}
	if _, err := s.Create(ctx, "r", in); err != nil {
		t.Fatalf("Create: %v", err)
	}
	in["v"] = 2
	got, _ := s.Get(ctx, "r", "1")
	got["v"] = 3
	again, _ := s.Get(ctx, "r", "1")
	if again["v"] != 1 {
		t.Fatalf("store aliased caller maps: %v", again)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.Get(ctx, "r", "nope"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("Get expected ErrorRecordNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "r", "nope"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("Delete expected ErrorRecordNotFound, got %v", err)
	}
	if _, created, _ := s.Put(ctx, "r", "new", record.Record{"id": "new"}); !created {
		t.Fatalf("Put of unknown id should report created")
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: gorm.ErrDuplicatedKey, want: true},
		{err: fmt.Errorf("insert: %w", &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}), want: true},
		{err: &mysqlDriver.MySQLError{Number: 1146, Message: "Table doesn't exist"}, want: false},
		{err: errors.New("boom"), want: false},
		{err: nil, want: false},
	}
	for _, tt := range tests {
		if got := isDuplicateKeyErr(tt.err); got != tt.want {
			t.Fatalf("isDuplicateKeyErr(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
