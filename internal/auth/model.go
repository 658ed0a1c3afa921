package auth

import (
	"encoding/json"
	"time"

	"github.com/lgcert/indigene-certificate/internal/access"
	"gorm.io/datatypes"
)

const (
	RoleApplicant  = access.RoleApplicant
	RoleLGAdmin    = access.RoleLGAdmin
	RoleSuperAdmin = access.RoleSuperAdmin
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type UserRole struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RoleName    string    `gorm:"size:50;not null;uniqueIndex" json:"role_name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	FullName          string         `gorm:"size:150;not null" json:"full_name"`
	Email             string         `gorm:"size:150;not null;uniqueIndex" json:"email"`
	Phone             string         `gorm:"size:20" json:"phone"`
	PasswordHash      string         `gorm:"not null" json:"-"`
	RoleID            uint           `gorm:"not null;index" json:"role_id"`
	Role              UserRole       `gorm:"foreignKey:RoleID" json:"role"`
	LocalGovernmentID *uint          `gorm:"index" json:"local_government_id,omitempty"`
	Permissions       datatypes.JSON `json:"permissions"`
	Status            string         `gorm:"size:20;not null;default:'active'" json:"status"`
	TokenVersion      int            `gorm:"not null;default:0" json:"-"`
	LastLoginAt       *time.Time     `json:"last_login_at,omitempty"`
	CreatedBy         string         `gorm:"size:100" json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Flags decodes the stored permission list, dropping unknown entries.
func (u User) Flags() []PermissionFlag {
	if len(u.Permissions) == 0 {
		return nil
	}
	var raw []string
	if err := json.Unmarshal(u.Permissions, &raw); err != nil {
		return nil
	}
	flags, _ := ParsePermissions(raw)
	return flags
}

func (u *User) SetFlags(flags []PermissionFlag) {
	if flags == nil {
		flags = []PermissionFlag{}
	}
	b, _ := json.Marshal(flags)
	u.Permissions = datatypes.JSON(b)
}

// UserPayload is the user profile returned to clients.
type UserPayload struct {
	ID                uint             `json:"id"`
	FullName          string           `json:"fullName"`
	Email             string           `json:"email"`
	Phone             string           `json:"phone"`
	Role              string           `json:"role"`
	Permissions       []PermissionFlag `json:"permissions"`
	LocalGovernmentID *uint            `json:"localGovernmentId,omitempty"`
}

func (u User) Payload() UserPayload {
	flags := u.Flags()
	if flags == nil {
		flags = []PermissionFlag{}
	}
	return UserPayload{
		ID:                u.ID,
		FullName:          u.FullName,
		Email:             u.Email,
		Phone:             u.Phone,
		Role:              u.Role.RoleName,
		Permissions:       flags,
		LocalGovernmentID: u.LocalGovernmentID,
	}
}
