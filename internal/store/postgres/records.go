package postgres

import (
	"context"
	"fmt"

	"monthlydata/internal/store"
	"monthlydata/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withCreator preloads the creator projection, the join shown on every read path.
func (s *Store) withCreator(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("CreatedBy", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "username", "email")
	})
}

func applyFilter(tx *gorm.DB, f store.RecordFilter) *gorm.DB {
	if f.Username != "" {
		tx = tx.Where("username = ?", f.Username)
	}
	if f.Mobile != "" {
		tx = tx.Where("mobile = ?", f.Mobile)
	}
	if f.ExcludeID != uuid.Nil {
		tx = tx.Where("id <> ?", f.ExcludeID)
	}
	return tx
}

func (s *Store) CreateRecord(ctx context.Context, r *models.MonthlyRecord) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error; err != nil {
		return fmt.Errorf("create record: %w", translate(err))
	}
	var c models.Creator
	if err := s.db.WithContext(ctx).Select("id", "username", "email").First(&c, r.CreatedByID).Error; err != nil {
		return fmt.Errorf("resolve creator %d: %w", r.CreatedByID, translate(err))
	}
	r.CreatedBy = &c
	return nil
}

func (s *Store) FindRecordByID(ctx context.Context, id uuid.UUID) (*models.MonthlyRecord, error) {
	var r models.MonthlyRecord
	if err := s.withCreator(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, fmt.Errorf("find record %s: %w", id, translate(err))
	}
	return &r, nil
}

func (s *Store) FindOneRecord(ctx context.Context, f store.RecordFilter) (*models.MonthlyRecord, error) {
	var r models.MonthlyRecord
	if err := applyFilter(s.db.WithContext(ctx), f).Take(&r).Error; err != nil {
		return nil, fmt.Errorf("find record: %w", translate(err))
	}
	return &r, nil
}

// FindRecords returns newest first. A non-positive limit returns every match after Skip.
func (s *Store) FindRecords(ctx context.Context, f store.RecordFilter, p store.Page) ([]models.MonthlyRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = -1
	}
	out := []models.MonthlyRecord{}
	err := applyFilter(s.withCreator(ctx).Model(&models.MonthlyRecord{}), f).
		Order("created_at desc").
		Order("id desc").
		Offset(p.Skip).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list records: %w", translate(err))
	}
	return out, nil
}

func (s *Store) CountRecords(ctx context.Context, f store.RecordFilter) (int64, error) {
	var n int64
	if err := applyFilter(s.db.WithContext(ctx).Model(&models.MonthlyRecord{}), f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count records: %w", translate(err))
	}
	return n, nil
}

func (s *Store) UpdateRecordByID(ctx context.Context, id uuid.UUID, u store.RecordUpdate) (*models.MonthlyRecord, error) {
	if u.Empty() {
		return s.FindRecordByID(ctx, id)
	}
	res := s.db.WithContext(ctx).Model(&models.MonthlyRecord{}).Where("id = ?", id).Updates(u.Columns())
	if res.Error != nil {
		return nil, fmt.Errorf("update record %s: %w", id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update record %s: %w", id, store.ErrNotFound)
	}
	return s.FindRecordByID(ctx, id)
}

func (s *Store) DeleteRecordByID(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MonthlyRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete record %s: %w", id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete record %s: %w", id, store.ErrNotFound)
	}
	return nil
}
