package dynamicfield

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, f *DynamicField) error
	Update(ctx context.Context, f *DynamicField) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*DynamicField, error)
	ListByLocalGovernment(ctx context.Context, lgaID uint) ([]DynamicField, error)
	KeyExists(ctx context.Context, lgaID uint, key string, exceptID uint) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, f *DynamicField) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *repository) Update(ctx context.Context, f *DynamicField) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&DynamicField{}, id).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*DynamicField, error) {
	var f DynamicField
	if err := r.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repository) ListByLocalGovernment(ctx context.Context, lgaID uint) ([]DynamicField, error) {
	var out []DynamicField
	err := r.db.WithContext(ctx).
		Where("local_government_id = ?", lgaID).
		Order("position ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *repository) KeyExists(ctx context.Context, lgaID uint, key string, exceptID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&DynamicField{}).
		Where("local_government_id = ? AND field_key = ? AND id <> ?", lgaID, key, exceptID).
		Count(&n).Error
	return n > 0, err
}
