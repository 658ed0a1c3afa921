package dynamicfield

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service interface {
	List(ctx context.Context, lgaID uint) ([]DynamicField, error)
	Create(ctx context.Context, actorID uint, scope *uint, in Input, ip string) (*DynamicField, error)
	Update(ctx context.Context, actorID uint, scope *uint, id uint, in Input, ip string) (*DynamicField, error)
	Delete(ctx context.Context, actorID uint, scope *uint, id uint, ip string) error
	// ValidateExtra checks submitted extra values against the fields of an LGA.
	ValidateExtra(ctx context.Context, lgaID uint, values map[string]string) error
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
}

func NewService(repo Repository, auditSvc auditlog.Service) Service {
	return &service{repo: repo, auditSvc: auditSvc}
}

func (s *service) List(ctx context.Context, lgaID uint) ([]DynamicField, error) {
	return s.repo.ListByLocalGovernment(ctx, lgaID)
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// KeyFor derives a field key from its label when none is given.
func KeyFor(label string) string {
	return strings.Trim(nonKeyChars.ReplaceAllString(strings.ToLower(label), "_"), "_")
}

func checkScope(scope *uint, lgaID uint) error {
	if scope != nil && *scope != lgaID {
		return fmt.Errorf("local government %d: %w", lgaID, apperr.ErrForbidden)
	}
	return nil
}

func (s *service) normalize(ctx context.Context, in Input, exceptID uint) (string, datatypes.JSON, error) {
	if strings.TrimSpace(in.Label) == "" {
		return "", nil, &validation.Error{Field: "label", Message: "Label is required"}
	}
	if !in.Kind.Valid() {
		return "", nil, &validation.Error{Field: "kind", Message: "Kind must be one of: text, number, date, select, textarea"}
	}
	if in.Kind == KindSelect && len(in.Options) == 0 {
		return "", nil, &validation.Error{Field: "options", Message: "Select fields need at least one option"}
	}
	key := strings.TrimSpace(in.Key)
	if key == "" {
		key = KeyFor(in.Label)
	}
	exists, err := s.repo.KeyExists(ctx, in.LocalGovernmentID, key, exceptID)
	if err != nil {
		return "", nil, err
	}
	if exists {
		return "", nil, fmt.Errorf("field key %q: %w", key, apperr.ErrDuplicate)
	}
	var opts datatypes.JSON
	if len(in.Options) > 0 {
		b, _ := json.Marshal(in.Options)
		opts = datatypes.JSON(b)
	}
	return key, opts, nil
}

func (s *service) Create(ctx context.Context, actorID uint, scope *uint, in Input, ip string) (*DynamicField, error) {
	if scope != nil && in.LocalGovernmentID == 0 {
		in.LocalGovernmentID = *scope
	}
	if in.LocalGovernmentID == 0 {
		return nil, &validation.Error{Field: "local_government_id", Message: "Local government is required"}
	}
	if err := checkScope(scope, in.LocalGovernmentID); err != nil {
		return nil, err
	}
	key, opts, err := s.normalize(ctx, in, 0)
	if err != nil {
		return nil, err
	}

	f := &DynamicField{
		LocalGovernmentID: in.LocalGovernmentID,
		Label:             strings.TrimSpace(in.Label),
		Key:               key,
		Kind:              in.Kind,
		Required:          in.Required,
		Options:           opts,
		Position:          in.Position,
		CreatedBy:         actorID,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	s.auditSvc.LogAction(ctx, &actorID, &f.LocalGovernmentID, "DYNAMIC_FIELD_CREATED", map[string]interface{}{
		"field_id": f.ID,
		"key":      f.Key,
		"kind":     f.Kind,
	}, ip, auditlog.StatusSuccess)
	return f, nil
}

func (s *service) get(ctx context.Context, scope *uint, id uint) (*DynamicField, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("dynamic field %d: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	if err := checkScope(scope, f.LocalGovernmentID); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) Update(ctx context.Context, actorID uint, scope *uint, id uint, in Input, ip string) (*DynamicField, error) {
	f, err := s.get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	in.LocalGovernmentID = f.LocalGovernmentID
	key, opts, err := s.normalize(ctx, in, f.ID)
	if err != nil {
		return nil, err
	}
	f.Label = strings.TrimSpace(in.Label)
	f.Key = key
	f.Kind = in.Kind
	f.Required = in.Required
	f.Options = opts
	f.Position = in.Position
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	s.auditSvc.LogAction(ctx, &actorID, &f.LocalGovernmentID, "DYNAMIC_FIELD_UPDATED", map[string]interface{}{
		"field_id": f.ID,
		"key":      f.Key,
	}, ip, auditlog.StatusSuccess)
	return f, nil
}

func (s *service) Delete(ctx context.Context, actorID uint, scope *uint, id uint, ip string) error {
	f, err := s.get(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.auditSvc.LogAction(ctx, &actorID, &f.LocalGovernmentID, "DYNAMIC_FIELD_DELETED", map[string]interface{}{
		"field_id": id,
		"key":      f.Key,
	}, ip, auditlog.StatusSuccess)
	return nil
}

// ValidateExtra runs in field position order and stops at the first failure.
func (s *service) ValidateExtra(ctx context.Context, lgaID uint, values map[string]string) error {
	fields, err := s.repo.ListByLocalGovernment(ctx, lgaID)
	if err != nil {
		return err
	}
	for _, f := range fields {
		v := strings.TrimSpace(values[f.Key])
		if v == "" {
			if f.Required {
				return &validation.Error{Field: f.Key, Message: f.Label + " is required"}
			}
			continue
		}
		if res := checkValue(f, v); !res.Valid {
			return res.Err()
		}
	}
	return nil
}

func checkValue(f DynamicField, v string) validation.Result {
	switch f.Kind {
	case KindNumber:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return validation.Result{Field: f.Key, Message: f.Label + " must be a number"}
		}
	case KindDate:
		if res := validation.ValidateDate(f.Label, v); !res.Valid {
			res.Field = f.Key
			return res
		}
	case KindSelect:
		for _, choice := range f.Choices() {
			if choice == v {
				return validation.OK
			}
		}
		return validation.Result{Field: f.Key, Message: f.Label + " must be one of: " + strings.Join(f.Choices(), ", ")}
	}
	return validation.OK
}
