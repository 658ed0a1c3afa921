package localgovernment

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, lga *LocalGovernment) error
	Update(ctx context.Context, lga *LocalGovernment) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*LocalGovernment, error)
	GetByCode(ctx context.Context, code string) (*LocalGovernment, error)
	List(ctx context.Context, filter Filter) ([]LocalGovernment, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, lga *LocalGovernment) error {
	return r.db.WithContext(ctx).Create(lga).Error
}

func (r *repository) Update(ctx context.Context, lga *LocalGovernment) error {
	return r.db.WithContext(ctx).Save(lga).Error
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&LocalGovernment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*LocalGovernment, error) {
	var lga LocalGovernment
	if err := r.db.WithContext(ctx).First(&lga, id).Error; err != nil {
		return nil, err
	}
	return &lga, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*LocalGovernment, error) {
	var lga LocalGovernment
	err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&lga).Error
	if err != nil {
		return nil, err
	}
	return &lga, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]LocalGovernment, error) {
	var out []LocalGovernment
	q := r.db.WithContext(ctx).Model(&LocalGovernment{})
	if filter.State != "" {
		q = q.Where("LOWER(state) = ?", strings.ToLower(filter.State))
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("state ASC, name ASC").Find(&out).Error
	return out, err
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&LocalGovernment{}).Count(&n).Error
	return n, err
}
