package application

import (
	"context"
	"strings"
	"time"

	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, app *Application) error
	Save(ctx context.Context, app *Application) error
	GetByID(ctx context.Context, id uint) (*Application, error)
	GetByReference(ctx context.Context, reference string) (*Application, error)
	ListByUser(ctx context.Context, userID uint) ([]Application, error)
	List(ctx context.Context, filter Filter) ([]Application, int64, error)
	// ChangeStatus saves app and appends history in one transaction.
	ChangeStatus(ctx context.Context, app *Application, from lifecycle.Status, note string, actorID uint) error
	UpdateColumns(ctx context.Context, id uint, values map[string]interface{}) error
	StaleUnpaid(ctx context.Context, before time.Time) ([]Application, error)
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

func (r *repository) Create(ctx context.Context, app *Application) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(app).Error; err != nil {
			return err
		}
		return lifecycle.RecordHistory(ctx, tx, RecordType, app.ID, "", app.Status, "", app.UserID)
	})
}

func (r *repository) Save(ctx context.Context, app *Application) error {
	return r.db.WithContext(ctx).Save(app).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Application, error) {
	var app Application
	if err := r.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Application, error) {
	var app Application
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Application, error) {
	var out []Application
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Application, int64, error) {
	q := r.db.WithContext(ctx).Model(&Application{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.LocalGovernmentID != nil {
		q = q.Where("local_government_id = ?", *filter.LocalGovernmentID)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR nin LIKE ? OR LOWER(reference) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []Application
	offset := (filter.Page - 1) * filter.PageSize
	err := q.Order("submitted_at DESC, id DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Find(&out).Error
	return out, total, err
}

func (r *repository) ChangeStatus(ctx context.Context, app *Application, from lifecycle.Status, note string, actorID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(app).Error; err != nil {
			return err
		}
		return lifecycle.RecordHistory(ctx, tx, RecordType, app.ID, from, app.Status, note, actorID)
	})
}

func (r *repository) UpdateColumns(ctx context.Context, id uint, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&Application{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) StaleUnpaid(ctx context.Context, before time.Time) ([]Application, error) {
	var out []Application
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status IN ? AND submitted_at < ?",
			lifecycle.StatusPending,
			[]lifecycle.PaymentStatus{lifecycle.PaymentUnpaid, lifecycle.PaymentPending, lifecycle.PaymentFailed},
			before).
		Find(&out).Error
	return out, err
}

func (r *repository) scoped(ctx context.Context, localGovernmentID *uint) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&Application{})
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
