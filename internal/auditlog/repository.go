package auditlog

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	GetByFilter(ctx context.Context, filter AuditLogFilter) ([]AuditLogResponse, int64, error)
	GetByID(ctx context.Context, id uint) (*AuditLogResponse, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

const selectColumns = `
	al.id, al.user_id, al.local_government_id, al.action,
	al.details, al.ip_address, al.status, al.created_at,
	u.full_name as user_name,
	lg.name as local_government_name
`

func (r *repository) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("audit_logs al").
		Select(selectColumns).
		Joins("LEFT JOIN users u ON al.user_id = u.id").
		Joins("LEFT JOIN local_governments lg ON al.local_government_id = lg.id")
}

// Create inserts a new audit log entry
func (r *repository) Create(ctx context.Context, log *AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// GetByFilter retrieves audit logs with filtering and pagination
func (r *repository) GetByFilter(ctx context.Context, filter AuditLogFilter) ([]AuditLogResponse, int64, error) {
	var logs []AuditLogResponse
	var total int64

	query := r.base(ctx)

	if filter.UserID != nil {
		query = query.Where("al.user_id = ?", *filter.UserID)
	}
	if filter.LocalGovernmentID != nil {
		query = query.Where("al.local_government_id = ?", *filter.LocalGovernmentID)
	}
	if filter.Action != "" {
		query = query.Where("LOWER(al.action) LIKE ?", "%"+strings.ToLower(filter.Action)+"%")
	}
	if filter.Status != "" {
		query = query.Where("al.status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("(LOWER(al.action) LIKE ? OR LOWER(u.full_name) LIKE ? OR al.ip_address LIKE ?)", like, like, like)
	}
	if filter.FromDate != nil {
		query = query.Where("al.created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("al.created_at <= ?", *filter.ToDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	offset := (filter.Page - 1) * filter.Limit
	err := query.Order("al.created_at DESC").Order("al.id DESC").
		Limit(filter.Limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*AuditLogResponse, error) {
	var log AuditLogResponse
	if err := r.base(ctx).Where("al.id = ?", id).First(&log).Error; err != nil {
		return nil, err
	}
	return &log, nil
}
