package backend

import (
	"context"
	"errors"
	"time"

	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoredRow is one backend row persisted as a JSON document.
type StoredRow struct {
	Resource  string `gorm:"primaryKey;size:64"`
	ID        string `gorm:"primaryKey;size:64"`
	FarmId    string `gorm:"index;size:64"`
	Body      []byte `gorm:"type:json;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (StoredRow) TableName() string { return "farm_rows" }

// GormStore persists rows in MySQL through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&StoredRow{})
}

func (s *GormStore) List(ctx context.Context, resource string) ([]record.Record, error) {
	var rows []StoredRow
	if err := s.db.WithContext(ctx).
		Where("resource = ?", resource).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return decodeStoredRows(rows)
}

func (s *GormStore) ListByFarm(ctx context.Context, resource, farmId string) ([]record.Record, error) {
	var rows []StoredRow
	if err := s.db.WithContext(ctx).
		Where("resource = ? AND farm_id = ?", resource, farmId).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return decodeStoredRows(rows)
}

func (s *GormStore) Get(ctx context.Context, resource, id string) (record.Record, error) {
	var row StoredRow
	err := s.db.WithContext(ctx).Where("resource = ? AND id = ?", resource, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeStoredRow(row)
}

func (s *GormStore) Create(ctx context.Context, resource string, rec record.Record) (record.Record, error) {
	row, err := toStoredRow(resource, rec.ID(), rec)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Create(&row).Error
	if isDuplicateKeyErr(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

func (s *GormStore) Put(ctx context.Context, resource, id string, rec record.Record) (record.Record, bool, error) {
	row, err := toStoredRow(resource, id, rec)
	if err != nil {
		return nil, false, err
	}
	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&StoredRow{}).Where("resource = ? AND id = ?", resource, id).Count(&count).Error; err != nil {
			return err
		}
		created = count == 0
		return tx.Clauses(clause.OnConflict{
			DoUpdates: clause.AssignmentColumns([]string{"farm_id", "body", "updated_at"}),
		}).Create(&row).Error
	})
	if err != nil {
		return nil, false, err
	}
	return rec.Clone(), created, nil
}

func (s *GormStore) Delete(ctx context.Context, resource, id string) error {
	res := s.db.WithContext(ctx).Where("resource = ? AND id = ?", resource, id).Delete(&StoredRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// isDuplicateKeyErr also covers connections opened without TranslateError.
func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func toStoredRow(resource, id string, rec record.Record) (StoredRow, error) {
	body, err := utils.MarshalToJSON(rec)
	if err != nil {
		return StoredRow{}, err
	}
	return StoredRow{
		Resource: resource,
		ID:       id,
		FarmId:   rec.FarmId(),
		Body:     []byte(body),
	}, nil
}

func decodeStoredRow(row StoredRow) (record.Record, error) {
	var rec record.Record
	if err := utils.UnmarshalFromJSON(row.Body, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeStoredRows(rows []StoredRow) ([]record.Record, error) {
	out := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeStoredRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
