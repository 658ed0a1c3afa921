package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/auth"
)

// Role constants to avoid string typos
const (
	RoleApplicant  = auth.RoleApplicant
	RoleLGAdmin    = auth.RoleLGAdmin
	RoleSuperAdmin = auth.RoleSuperAdmin
)

// AccessContext stores user access information
type AccessContext struct {
	UserID            uint
	RoleName          string
	LocalGovernmentID *uint
	Permissions       []auth.PermissionFlag
}

func NewAccessContext(user auth.User) AccessContext {
	return AccessContext{
		UserID:            user.ID,
		RoleName:          user.Role.RoleName,
		LocalGovernmentID: user.LocalGovernmentID,
		Permissions:       user.Flags(),
	}
}

// Scope is the local government an lg admin may see. Superadmins and
// applicants are not scoped here; applicant ownership is enforced per record.
func (ac AccessContext) Scope() *uint {
	if ac.RoleName == RoleLGAdmin {
		if ac.LocalGovernmentID == nil {
			none := uint(0)
			return &none
		}
		return ac.LocalGovernmentID
	}
	return nil
}

func (ac AccessContext) Has(perm auth.PermissionFlag) bool {
	if ac.RoleName == RoleSuperAdmin {
		return true
	}
	if ac.RoleName != RoleLGAdmin {
		return false
	}
	return auth.HasPermission(ac.Permissions, perm)
}

// CanAccessLGA checks if the user can act on records of a local government.
func (ac AccessContext) CanAccessLGA(localGovernmentID uint) bool {
	switch ac.RoleName {
	case RoleSuperAdmin:
		return true
	case RoleLGAdmin:
		return ac.LocalGovernmentID != nil && *ac.LocalGovernmentID == localGovernmentID
	default:
		return false
	}
}

// GetAccessContext returns the context set by AuthMiddleware.
func GetAccessContext(c *gin.Context) (AccessContext, bool) {
	v, ok := c.Get("access_context")
	if !ok {
		return AccessContext{}, false
	}
	ac, ok := v.(AccessContext)
	return ac, ok
}
