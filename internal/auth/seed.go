package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var defaultRoles = []UserRole{
	{RoleName: RoleApplicant, Description: "Citizen applying for certificates"},
	{RoleName: RoleLGAdmin, Description: "Local government administrator"},
	{RoleName: RoleSuperAdmin, Description: "Platform administrator"},
}

// SeedUserRoles inserts missing roles.
func SeedUserRoles(db *gorm.DB) error {
	for _, role := range defaultRoles {
		var existing UserRole
		err := db.Where("role_name = ?", role.RoleName).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		r := role
		if err := db.Create(&r).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", role.RoleName, err)
		}
	}
	return nil
}

// SeedSuperAdminUser creates the platform superadmin when none exists.
func SeedSuperAdminUser(db *gorm.DB, email, password string) error {
	var role UserRole
	if err := db.Where("role_name = ?", RoleSuperAdmin).First(&role).Error; err != nil {
		return fmt.Errorf("superadmin role missing: %w", err)
	}

	var count int64
	if err := db.Model(&User{}).Where("role_id = ?", role.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &User{
		FullName:     "Super Admin",
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		RoleID:       role.ID,
		Status:       StatusActive,
		CreatedBy:    "system",
	}
	admin.SetFlags(AllPermissions)
	return db.Create(admin).Error
}
