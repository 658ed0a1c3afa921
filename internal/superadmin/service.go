package superadmin

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/auth"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

// StatsSource is implemented by the application and digitization services.
type StatsSource interface {
	Stats(ctx context.Context, localGovernmentID *uint, months int) (*lifecycle.Stats, error)
}

type CertificateCounter interface {
	CountIssued(ctx context.Context, localGovernmentID *uint) (int64, error)
}

type RevenueSource interface {
	Revenue(ctx context.Context, localGovernmentID *uint) (float64, error)
}

type Service struct {
	auth         auth.Service
	applications StatsSource
	digitization StatsSource
	certificates CertificateCounter
	payments     RevenueSource
	auditSvc     auditlog.Service
}

func NewService(authSvc auth.Service, applications, digitization StatsSource, certificates CertificateCounter, payments RevenueSource, auditSvc auditlog.Service) *Service {
	return &Service{
		auth:         authSvc,
		applications: applications,
		digitization: digitization,
		certificates: certificates,
		payments:     payments,
		auditSvc:     auditSvc,
	}
}

// =========================== LG ADMINS ===========================

func (s *Service) CreateAdmin(ctx context.Context, actorID uint, req CreateAdminRequest, ip string) (*auth.User, error) {
	if r := validation.ValidateEmail(req.Email); !r.Valid {
		return nil, r.Err()
	}
	if req.Phone != "" {
		if r := validation.ValidatePhone(req.Phone); !r.Valid {
			return nil, r.Err()
		}
	}
	if r := validation.ValidatePassword(req.Password); !r.Valid {
		return nil, r.Err()
	}
	flags, err := auth.ParsePermissions(req.Permissions)
	if err != nil {
		return nil, &validation.Error{Field: "permissions", Message: err.Error()}
	}
	return s.auth.CreateLGAdmin(ctx, auth.CreateAdminInput{
		ActorID:           actorID,
		FullName:          req.FullName,
		Email:             req.Email,
		Phone:             req.Phone,
		Password:          req.Password,
		LocalGovernmentID: req.LocalGovernmentID,
		Permissions:       flags,
		IPAddress:         ip,
	})
}

func (s *Service) UpdatePermissions(ctx context.Context, actorID, userID uint, raw []string, ip string) (*auth.User, error) {
	flags, err := auth.ParsePermissions(raw)
	if err != nil {
		return nil, &validation.Error{Field: "permissions", Message: err.Error()}
	}
	return s.auth.UpdatePermissions(ctx, actorID, userID, flags, ip)
}

func (s *Service) UpdateStatus(ctx context.Context, actorID, userID uint, status, ip string) error {
	return s.auth.SetStatus(ctx, actorID, userID, status, ip)
}

func (s *Service) ListAdmins(ctx context.Context, localGovernmentID *uint) ([]AdminResponse, error) {
	users, err := s.auth.ListLGAdmins(ctx, localGovernmentID)
	if err != nil {
		return nil, err
	}
	out := make([]AdminResponse, len(users))
	for i, u := range users {
		out[i] = toResponse(u)
	}
	return out, nil
}

var bulkHeader = []string{"full_name", "email", "phone", "password", "local_government_id", "permissions"}

// BulkUploadAdmins imports lg admins from CSV. Permissions are separated by
// ';' within their column. Rows fail independently.
func (s *Service) BulkUploadAdmins(ctx context.Context, r io.Reader, actorID uint, ip string) (*BulkUploadResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &validation.Error{Field: "file", Message: "CSV file is empty or unreadable"}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range bulkHeader[:5] {
		if _, ok := cols[want]; !ok {
			return nil, &validation.Error{Field: "file", Message: "CSV is missing column " + want}
		}
	}

	result := &BulkUploadResult{Errors: []BulkRowError{}}
	for row := 2; ; row++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkRowError{Row: row, Error: err.Error()})
			continue
		}

		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		req := CreateAdminRequest{
			FullName: get("full_name"),
			Email:    get("email"),
			Phone:    get("phone"),
			Password: get("password"),
		}
		lga, err := strconv.ParseUint(get("local_government_id"), 10, 32)
		if err != nil || lga == 0 {
			result.Failed++
			result.Errors = append(result.Errors, BulkRowError{Row: row, Email: req.Email, Error: "invalid local_government_id"})
			continue
		}
		req.LocalGovernmentID = uint(lga)
		if p := get("permissions"); p != "" {
			for _, flag := range strings.Split(p, ";") {
				if flag = strings.TrimSpace(flag); flag != "" {
					req.Permissions = append(req.Permissions, flag)
				}
			}
		}
		if req.FullName == "" {
			result.Failed++
			result.Errors = append(result.Errors, BulkRowError{Row: row, Email: req.Email, Error: "full_name is required"})
			continue
		}

		if _, err := s.CreateAdmin(ctx, actorID, req, ip); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkRowError{Row: row, Email: req.Email, Error: err.Error()})
			continue
		}
		result.Created++
	}

	s.auditSvc.LogAction(ctx, &actorID, nil, "LG_ADMIN_BULK_UPLOAD", map[string]interface{}{
		"created": result.Created,
		"failed":  result.Failed,
	}, ip, auditlog.StatusSuccess)
	return result, nil
}

// =========================== DASHBOARD ===========================

// Dashboard builds the landing-page counters. scope restricts every figure to
// one local government.
func (s *Service) Dashboard(ctx context.Context, scope *uint, months int) (*Dashboard, error) {
	if months <= 0 || months > 24 {
		months = 6
	}
	apps, err := s.applications.Stats(ctx, scope, months)
	if err != nil {
		return nil, fmt.Errorf("application stats: %w", err)
	}
	digs, err := s.digitization.Stats(ctx, scope, months)
	if err != nil {
		return nil, fmt.Errorf("digitization stats: %w", err)
	}
	issued, err := s.certificates.CountIssued(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("certificate count: %w", err)
	}
	revenue, err := s.payments.Revenue(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}
	return &Dashboard{
		LocalGovernmentID:  scope,
		Applications:       apps,
		Digitization:       digs,
		CertificatesIssued: issued,
		Revenue:            revenue,
		PendingReview:      apps.AwaitingCount + digs.AwaitingCount,
	}, nil
}
