package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lgcert/indigene-certificate/config"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountInactive     = errors.New("your account is inactive")
	ErrEmailTaken          = errors.New("an account with this email already exists")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRole         = errors.New("invalid role")
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RegisterInput struct {
	FullName  string
	Email     string
	Phone     string
	Password  string
	IPAddress string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
}

type CreateAdminInput struct {
	ActorID           uint
	FullName          string
	Email             string
	Phone             string
	Password          string
	LocalGovernmentID uint
	Permissions       []PermissionFlag
	IPAddress         string
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Login(ctx context.Context, in LoginInput) (*TokenPair, *User, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	GetUserByID(ctx context.Context, userID uint) (*User, error)
	Logout(ctx context.Context, userID uint, ip string) error

	CreateLGAdmin(ctx context.Context, in CreateAdminInput) (*User, error)
	UpdatePermissions(ctx context.Context, actorID, userID uint, flags []PermissionFlag, ip string) (*User, error)
	SetStatus(ctx context.Context, actorID, userID uint, status, ip string) error
	ListLGAdmins(ctx context.Context, localGovernmentID *uint) ([]User, error)
	AdminEmails(ctx context.Context, localGovernmentID uint) ([]string, error)
}

type service struct {
	repo          Repository
	auditSvc      auditlog.Service
	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewService(r Repository, cfg *config.Config, auditSvc auditlog.Service) Service {
	return &service{
		repo:          r,
		auditSvc:      auditSvc,
		accessSecret:  cfg.JWTAccessSecret,
		refreshSecret: cfg.JWTRefreshSecret,
		accessTTL:     cfg.AccessTTL(),
		refreshTTL:    cfg.RefreshTTL(),
		now:           time.Now,
	}
}

// =============================
// Register
// =============================

func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	role, err := s.repo.FindRoleByName(ctx, RoleApplicant)
	if err != nil {
		return nil, ErrInvalidRole
	}
	return s.createUser(ctx, role, in.FullName, in.Email, in.Phone, in.Password, nil, nil, "self", in.IPAddress)
}

func (s *service) createUser(ctx context.Context, role *UserRole, fullName, email, phone, password string, lgaID *uint, flags []PermissionFlag, createdBy, ip string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		s.auditSvc.LogAction(ctx, nil, nil, "USER_REGISTER", map[string]interface{}{
			"email":  email,
			"role":   role.RoleName,
			"reason": "email already registered",
		}, ip, "failure")
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		FullName:          strings.TrimSpace(fullName),
		Email:             email,
		Phone:             strings.TrimSpace(phone),
		PasswordHash:      string(hash),
		RoleID:            role.ID,
		LocalGovernmentID: lgaID,
		Status:            StatusActive,
		CreatedBy:         createdBy,
	}
	user.SetFlags(flags)

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.Role = *role

	s.auditSvc.LogAction(ctx, &user.ID, lgaID, "USER_REGISTER", map[string]interface{}{
		"email": email,
		"role":  role.RoleName,
	}, ip, "success")
	return user, nil
}

// =============================
// Login
// =============================

func (s *service) Login(ctx context.Context, in LoginInput) (*TokenPair, *User, error) {
	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		s.auditSvc.LogAction(ctx, nil, nil, "USER_LOGIN", map[string]interface{}{
			"email":  in.Email,
			"reason": "unknown email",
		}, in.IPAddress, "failure")
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.auditSvc.LogAction(ctx, &user.ID, nil, "USER_LOGIN", map[string]interface{}{
			"email":  user.Email,
			"reason": "wrong password",
		}, in.IPAddress, "failure")
		return nil, nil, ErrInvalidCredentials
	}

	if user.Status != StatusActive {
		return nil, nil, ErrAccountInactive
	}

	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.generateRefreshToken(user)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, nil, err
	}

	s.auditSvc.LogAction(ctx, &user.ID, user.LocalGovernmentID, "USER_LOGIN", map[string]interface{}{
		"email": user.Email,
		"role":  user.Role.RoleName,
	}, in.IPAddress, "success")

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, user, nil
}

func (s *service) generateAccessToken(user *User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role.RoleName,
		"exp":     s.now().Add(s.accessTTL).Unix(),
		"iat":     s.now().Unix(),
	}
	if user.LocalGovernmentID != nil {
		claims["local_government_id"] = *user.LocalGovernmentID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.accessSecret))
}

func (s *service) generateRefreshToken(user *User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"ver":     user.TokenVersion,
		"exp":     s.now().Add(s.refreshTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.refreshSecret))
}

// =============================
// Refresh
// =============================

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.refreshSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidRefreshToken
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return "", ErrInvalidRefreshToken
	}
	version, _ := claims["ver"].(float64)

	user, err := s.repo.FindByID(ctx, uint(userID))
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	if user.Status != StatusActive || int(version) != user.TokenVersion {
		return "", ErrInvalidRefreshToken
	}

	return s.generateAccessToken(user)
}

func (s *service) GetUserByID(ctx context.Context, userID uint) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout invalidates every refresh token issued to the user.
func (s *service) Logout(ctx context.Context, userID uint, ip string) error {
	if err := s.repo.IncrementTokenVersion(ctx, userID); err != nil {
		return err
	}
	s.auditSvc.LogAction(ctx, &userID, nil, "USER_LOGOUT", nil, ip, "success")
	return nil
}

// =============================
// LG admin management
// =============================

func (s *service) CreateLGAdmin(ctx context.Context, in CreateAdminInput) (*User, error) {
	if in.LocalGovernmentID == 0 {
		return nil, errors.New("local government is required for lg admins")
	}
	role, err := s.repo.FindRoleByName(ctx, RoleLGAdmin)
	if err != nil {
		return nil, ErrInvalidRole
	}
	lga := in.LocalGovernmentID
	return s.createUser(ctx, role, in.FullName, in.Email, in.Phone, in.Password, &lga, in.Permissions, fmt.Sprintf("user:%d", in.ActorID), in.IPAddress)
}

func (s *service) UpdatePermissions(ctx context.Context, actorID, userID uint, flags []PermissionFlag, ip string) (*User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role.RoleName != RoleLGAdmin {
		s.auditSvc.LogAction(ctx, &actorID, user.LocalGovernmentID, "USER_PERMISSIONS_UPDATED", map[string]interface{}{
			"target_user_id": userID,
			"reason":         "permissions apply to lg admins only",
		}, ip, "failure")
		return nil, errors.New("permissions apply to lg admins only")
	}

	before := user.Flags()
	user.SetFlags(flags)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &actorID, user.LocalGovernmentID, "USER_PERMISSIONS_UPDATED", map[string]interface{}{
		"target_user_id": userID,
		"before":         before,
		"after":          flags,
	}, ip, "success")
	return user, nil
}

func (s *service) SetStatus(ctx context.Context, actorID, userID uint, status, ip string) error {
	if status != StatusActive && status != StatusInactive {
		return fmt.Errorf("invalid status %q", status)
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role.RoleName == RoleSuperAdmin {
		return errors.New("superadmin status cannot be changed")
	}
	user.Status = status
	if status == StatusInactive {
		user.TokenVersion++
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	s.auditSvc.LogAction(ctx, &actorID, user.LocalGovernmentID, "USER_STATUS_CHANGED", map[string]interface{}{
		"target_user_id": userID,
		"status":         status,
	}, ip, "success")
	return nil
}

func (s *service) ListLGAdmins(ctx context.Context, localGovernmentID *uint) ([]User, error) {
	return s.repo.ListByRole(ctx, RoleLGAdmin, localGovernmentID)
}

func (s *service) AdminEmails(ctx context.Context, localGovernmentID uint) ([]string, error) {
	return s.repo.EmailsByLocalGovernment(ctx, RoleLGAdmin, localGovernmentID)
}
