package reports

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Applications(ctx context.Context, req Request) ([]RecordRow, error)
	Digitization(ctx context.Context, req Request) ([]RecordRow, error)
	Payments(ctx context.Context, req Request) ([]PaymentRow, error)
	AuditLogs(ctx context.Context, req Request) ([]AuditRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) window(q *gorm.DB, column string, req Request) *gorm.DB {
	if !req.Start.IsZero() {
		q = q.Where(column+" >= ?", req.Start)
	}
	if !req.End.IsZero() {
		q = q.Where(column+" <= ?", req.End)
	}
	if req.LocalGovernmentID != nil {
		q = q.Where("local_government_id = ?", *req.LocalGovernmentID)
	}
	return q
}

func (r *repository) records(ctx context.Context, table string, columns []string, req Request) ([]RecordRow, error) {
	var rows []RecordRow
	q := r.db.WithContext(ctx).Table(table).Select(columns)
	q = r.window(q, "submitted_at", req)
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	err := q.Order("submitted_at ASC, id ASC").Scan(&rows).Error
	return rows, err
}

var baseColumns = []string{
	"id", "reference", "full_name", "nin", "local_government_name", "village",
	"status", "payment_status", "certificate_id", "submitted_at",
}

func (r *repository) Applications(ctx context.Context, req Request) ([]RecordRow, error) {
	return r.records(ctx, "applications", baseColumns, req)
}

func (r *repository) Digitization(ctx context.Context, req Request) ([]RecordRow, error) {
	cols := append(append([]string{}, baseColumns...), "old_certificate_number", "issue_year")
	return r.records(ctx, "digitization_requests", cols, req)
}

func (r *repository) Payments(ctx context.Context, req Request) ([]PaymentRow, error) {
	var rows []PaymentRow
	q := r.db.WithContext(ctx).Table("payments").
		Select("reference, record_type, record_id, amount, currency, gateway, status, paid_at, created_at")
	q = r.window(q, "created_at", req)
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	err := q.Order("created_at ASC, id ASC").Scan(&rows).Error
	return rows, err
}

func (r *repository) AuditLogs(ctx context.Context, req Request) ([]AuditRow, error) {
	var rows []AuditRow
	q := r.db.WithContext(ctx).Table("audit_logs").
		Select("id, user_id, local_government_id, action, status, ip_address, details, created_at")
	q = r.window(q, "created_at", req)
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	err := q.Order("created_at ASC, id ASC").Scan(&rows).Error
	return rows, err
}
