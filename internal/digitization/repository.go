package digitization

import (
	"context"
	"strings"
	"time"

	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, req *Request) error
	Save(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uint) (*Request, error)
	ListByUser(ctx context.Context, userID uint) ([]Request, error)
	List(ctx context.Context, filter Filter) ([]Request, int64, error)
	ChangeStatus(ctx context.Context, req *Request, from lifecycle.Status, note string, actorID uint) error
	UpdateColumns(ctx context.Context, id uint, values map[string]interface{}) error
	StaleUnpaid(ctx context.Context, before time.Time) ([]Request, error)
	CountByStatus(ctx context.Context, localGovernmentID *uint) (map[lifecycle.Status]int64, error)
	CountPaid(ctx context.Context, localGovernmentID *uint) (int64, error)
	SubmittedSince(ctx context.Context, localGovernmentID *uint, since time.Time) ([]time.Time, error)
	History(ctx context.Context, id uint) ([]lifecycle.History, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, req *Request) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return lifecycle.RecordHistory(ctx, tx, RecordType, req.ID, "", req.Status, "submitted", req.UserID)
	})
}

func (r *repository) Save(ctx context.Context, req *Request) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Request, error) {
	var req Request
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Request, error) {
	var out []Request
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Request, int64, error) {
	q := r.scoped(ctx, filter.LocalGovernmentID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR nin LIKE ? OR LOWER(reference) LIKE ? OR LOWER(old_certificate_number) LIKE ?", like, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []Request
	err := q.Order("submitted_at DESC, id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&out).Error
	return out, total, err
}

func (r *repository) ChangeStatus(ctx context.Context, req *Request, from lifecycle.Status, note string, actorID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(req).Error; err != nil {
			return err
		}
		return lifecycle.RecordHistory(ctx, tx, RecordType, req.ID, from, req.Status, note, actorID)
	})
}

func (r *repository) UpdateColumns(ctx context.Context, id uint, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&Request{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) StaleUnpaid(ctx context.Context, before time.Time) ([]Request, error) {
	var out []Request
	err := r.db.WithContext(ctx).
		Where("status = ? AND finalized = ? AND payment_status IN ? AND submitted_at < ?",
			lifecycle.StatusPending,
			false,
			[]lifecycle.PaymentStatus{lifecycle.PaymentUnpaid, lifecycle.PaymentPending, lifecycle.PaymentFailed},
			before).
		Find(&out).Error
	return out, err
}

func (r *repository) scoped(ctx context.Context, localGovernmentID *uint) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&Request{})
	if localGovernmentID != nil {
		q = q.Where("local_government_id = ?", *localGovernmentID)
	}
	return q
}

func (r *repository) CountByStatus(ctx context.Context, localGovernmentID *uint) (map[lifecycle.Status]int64, error) {
	var rows []struct {
		Status lifecycle.Status
		Count  int64
	}
	err := r.scoped(ctx, localGovernmentID).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[lifecycle.Status]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *repository) CountPaid(ctx context.Context, localGovernmentID *uint) (int64, error) {
	var n int64
	err := r.scoped(ctx, localGovernmentID).
		Where("payment_status = ?", lifecycle.PaymentPaid).
		Count(&n).Error
	return n, err
}

func (r *repository) SubmittedSince(ctx context.Context, localGovernmentID *uint, since time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.scoped(ctx, localGovernmentID).
		Where("submitted_at >= ?", since).
		Pluck("submitted_at", &out).Error
	return out, err
}

func (r *repository) History(ctx context.Context, id uint) ([]lifecycle.History, error) {
	return lifecycle.ListHistory(ctx, r.db, RecordType, id)
}
