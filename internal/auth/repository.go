package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, userID uint) (*User, error)
	FindRoleByName(ctx context.Context, name string) (*UserRole, error)
	ListByRole(ctx context.Context, roleName string, localGovernmentID *uint) ([]User, error)
	EmailsByLocalGovernment(ctx context.Context, roleName string, localGovernmentID uint) ([]string, error)
	IncrementTokenVersion(ctx context.Context, userID uint) error
}

type repository struct{ db *gorm.DB }

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) Update(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Omit("Role").Save(user).Error
}

// FindByEmail is case-insensitive; emails are stored lower-cased.
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Preload("Role").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) FindByID(ctx context.Context, userID uint) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Preload("Role").First(&u, userID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) FindRoleByName(ctx context.Context, name string) (*UserRole, error) {
	var role UserRole
	if err := r.db.WithContext(ctx).Where("role_name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *repository) ListByRole(ctx context.Context, roleName string, localGovernmentID *uint) ([]User, error) {
	var users []User
	q := r.db.WithContext(ctx).Preload("Role").
		Joins("JOIN user_roles ON user_roles.id = users.role_id").
		Where("user_roles.role_name = ?", roleName)
	if localGovernmentID != nil {
		q = q.Where("users.local_government_id = ?", *localGovernmentID)
	}
	err := q.Order("users.created_at DESC").Find(&users).Error
	return users, err
}

func (r *repository) EmailsByLocalGovernment(ctx context.Context, roleName string, localGovernmentID uint) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).Model(&User{}).
		Joins("JOIN user_roles ON user_roles.id = users.role_id").
		Where("user_roles.role_name = ? AND users.local_government_id = ? AND users.status = ?", roleName, localGovernmentID, StatusActive).
		Pluck("users.email", &emails).Error
	return emails, err
}

func (r *repository) IncrementTokenVersion(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error
}
