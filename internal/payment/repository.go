package payment

import (
	"context"

	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Update(ctx context.Context, p *Payment) error
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	GetByGatewayOrderID(ctx context.Context, orderID string) (*Payment, error)
	ListByUser(ctx context.Context, userID uint) ([]Payment, error)
	ListByRecord(ctx context.Context, recordType string, recordID uint) ([]Payment, error)
	SumPaid(ctx context.Context, localGovernmentID *uint) (float64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) Update(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	var p Payment
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByGatewayOrderID(ctx context.Context, orderID string) (*Payment, error) {
	var p Payment
	if err := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Payment, error) {
	var out []Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *repository) ListByRecord(ctx context.Context, recordType string, recordID uint) ([]Payment, error) {
	var out []Payment
	err := r.db.WithContext(ctx).
		Where("record_type = ? AND record_id = ?", recordType, recordID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *repository) SumPaid(ctx context.Context, localGovernmentID *uint) (float64, error) {
	var total float64
	q := r.db.WithContext(ctx).Model(&Payment{}).Where("status = ?", lifecycle.PaymentPaid)
	if localGovernmentID != nil {
		q = q.Where("local_government_id = ?", *localGovernmentID)
	}
	err := q.Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}
