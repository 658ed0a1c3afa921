package certificate

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, cert *Certificate) error
	GetByID(ctx context.Context, id uint) (*Certificate, error)
	GetByCertificateID(ctx context.Context, certificateID string) (*Certificate, error)
	GetByRecord(ctx context.Context, recordType string, recordID uint) (*Certificate, error)
	ListByUser(ctx context.Context, userID uint) ([]Certificate, error)
	CountIssued(ctx context.Context, localGovernmentID *uint) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, cert *Certificate) error {
	return r.db.WithContext(ctx).Create(cert).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Certificate, error) {
	var c Certificate
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) GetByCertificateID(ctx context.Context, certificateID string) (*Certificate, error) {
	var c Certificate
	if err := r.db.WithContext(ctx).Where("certificate_id = ?", certificateID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) GetByRecord(ctx context.Context, recordType string, recordID uint) (*Certificate, error) {
	var c Certificate
	err := r.db.WithContext(ctx).
		Where("record_type = ? AND record_id = ?", recordType, recordID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Certificate, error) {
	var out []Certificate
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&out).Error
	return out, err
}

func (r *repository) CountIssued(ctx context.Context, localGovernmentID *uint) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&Certificate{})
	if localGovernmentID != nil {
		q = q.Where("local_government_id = ?", *localGovernmentID)
	}
	err := q.Count(&n).Error
	return n, err
}
