package localgovernment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"gorm.io/gorm"
)

type Service interface {
	List(ctx context.Context, filter Filter) ([]LocalGovernment, error)
	Get(ctx context.Context, id uint) (*LocalGovernment, error)
	Fees(ctx context.Context, id uint) (*Fees, error)
	Create(ctx context.Context, actorID uint, in Input, ip string) (*LocalGovernment, error)
	Update(ctx context.Context, actorID, id uint, in Input, ip string) (*LocalGovernment, error)
	Delete(ctx context.Context, actorID, id uint, ip string) error
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
}

func NewService(repo Repository, auditSvc auditlog.Service) Service {
	return &service{repo: repo, auditSvc: auditSvc}
}

func (s *service) List(ctx context.Context, filter Filter) ([]LocalGovernment, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Get(ctx context.Context, id uint) (*LocalGovernment, error) {
	lga, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("local government %d: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	return lga, nil
}

// Fees is the authoritative fee schedule; payment initialization reads it
// instead of trusting client figures.
func (s *service) Fees(ctx context.Context, id uint) (*Fees, error) {
	lga, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Fees{
		LocalGovernmentID: lga.ID,
		ApplicationFee:    lga.ApplicationFee,
		DigitizationFee:   lga.DigitizationFee,
	}, nil
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.State) == "" || strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("name, state and code are required: %w", apperr.ErrInvalidInput)
	}
	if in.ApplicationFee < 0 || in.DigitizationFee < 0 {
		return fmt.Errorf("fees cannot be negative: %w", apperr.ErrInvalidInput)
	}
	return nil
}

func (s *service) Create(ctx context.Context, actorID uint, in Input, ip string) (*LocalGovernment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if _, err := s.repo.GetByCode(ctx, code); err == nil {
		return nil, fmt.Errorf("local government code %s: %w", code, apperr.ErrDuplicate)
	}

	lga := &LocalGovernment{
		Name:            strings.TrimSpace(in.Name),
		State:           strings.TrimSpace(in.State),
		Code:            code,
		ApplicationFee:  in.ApplicationFee,
		DigitizationFee: in.DigitizationFee,
		IsActive:        true,
	}
	if in.IsActive != nil {
		lga.IsActive = *in.IsActive
	}
	if err := s.repo.Create(ctx, lga); err != nil {
		s.auditSvc.LogAction(ctx, &actorID, nil, "LGA_CREATED", map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		}, ip, auditlog.StatusFailure)
		return nil, err
	}
	s.auditSvc.LogAction(ctx, &actorID, &lga.ID, "LGA_CREATED", map[string]interface{}{
		"code": code,
		"name": lga.Name,
	}, ip, auditlog.StatusSuccess)
	return lga, nil
}

func (s *service) Update(ctx context.Context, actorID, id uint, in Input, ip string) (*LocalGovernment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	lga, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code != lga.Code {
		if other, err := s.repo.GetByCode(ctx, code); err == nil && other.ID != id {
			return nil, fmt.Errorf("local government code %s: %w", code, apperr.ErrDuplicate)
		}
	}

	before := map[string]interface{}{
		"application_fee":  lga.ApplicationFee,
		"digitization_fee": lga.DigitizationFee,
		"is_active":        lga.IsActive,
	}
	lga.Name = strings.TrimSpace(in.Name)
	lga.State = strings.TrimSpace(in.State)
	lga.Code = code
	lga.ApplicationFee = in.ApplicationFee
	lga.DigitizationFee = in.DigitizationFee
	if in.IsActive != nil {
		lga.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, lga); err != nil {
		return nil, err
	}
	s.auditSvc.LogAction(ctx, &actorID, &lga.ID, "LGA_UPDATED", map[string]interface{}{
		"before": before,
		"after": map[string]interface{}{
			"application_fee":  lga.ApplicationFee,
			"digitization_fee": lga.DigitizationFee,
			"is_active":        lga.IsActive,
		},
	}, ip, auditlog.StatusSuccess)
	return lga, nil
}

func (s *service) Delete(ctx context.Context, actorID, id uint, ip string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("local government %d: %w", id, apperr.ErrNotFound)
		}
		return err
	}
	s.auditSvc.LogAction(ctx, &actorID, &id, "LGA_DELETED", nil, ip, auditlog.StatusSuccess)
	return nil
}
