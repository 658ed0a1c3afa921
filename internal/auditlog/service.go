package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/lgcert/indigene-certificate/logger"
)

type Service interface {
	LogAction(ctx context.Context, userID *uint, localGovernmentID *uint, action string, details map[string]interface{}, ip string, status string) error
	GetAuditLogs(ctx context.Context, filter AuditLogFilter) (*PaginatedAuditLogs, error)
	GetAuditLogByID(ctx context.Context, id uint) (*AuditLogResponse, error)
	GetStats(ctx context.Context, since time.Time) (*Stats, error)
}

type service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &service{repo: repo, log: log}
}

// LogAction writes an audit entry. Persistence failures are logged and
// returned; callers treat audit as best-effort.
func (s *service) LogAction(ctx context.Context, userID *uint, localGovernmentID *uint, action string, details map[string]interface{}, ip string, status string) error {
	if details == nil {
		details = make(map[string]interface{})
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	entry := &AuditLog{
		UserID:            userID,
		LocalGovernmentID: localGovernmentID,
		Action:            action,
		Details:           string(detailsJSON),
		IPAddress:         ip,
		Status:            status,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Errorf(err, "audit write failed for %s", action)
		return err
	}
	return nil
}

func (s *service) GetAuditLogs(ctx context.Context, filter AuditLogFilter) (*PaginatedAuditLogs, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	logs, total, err := s.repo.GetByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []AuditLogResponse{}
	}

	return &PaginatedAuditLogs{
		Data:       logs,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *service) GetAuditLogByID(ctx context.Context, id uint) (*AuditLogResponse, error) {
	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("audit log not found: %w", err)
	}
	return log, nil
}

func (s *service) GetStats(ctx context.Context, since time.Time) (*Stats, error) {
	now := time.Now()
	logs, total, err := s.repo.GetByFilter(ctx, AuditLogFilter{FromDate: &since, ToDate: &now, Page: 1, Limit: 1000})
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: total, ActionBreakdown: make(map[string]int)}
	for _, l := range logs {
		if l.Status == StatusSuccess {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
		stats.ActionBreakdown[l.Action]++
	}
	return stats, nil
}
