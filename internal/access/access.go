// Package access describes who is asking for a record.
package access

// Role names.
const (
	RoleApplicant  = "applicant"
	RoleLGAdmin    = "lgadmin"
	RoleSuperAdmin = "superadmin"
)

// Viewer is the requesting user as seen by services.
type Viewer struct {
	UserID uint
	Role   string
	// Scope pins lg admins to one local government.
	Scope *uint
}

func (v Viewer) IsAdmin() bool {
	return v.Role == RoleLGAdmin || v.Role == RoleSuperAdmin
}

// CanSee allows owners, superadmins and lg admins of the record's LGA.
func (v Viewer) CanSee(ownerID, localGovernmentID uint) bool {
	switch v.Role {
	case RoleSuperAdmin:
		return true
	case RoleLGAdmin:
		return v.Scope != nil && *v.Scope == localGovernmentID
	default:
		return v.UserID != 0 && v.UserID == ownerID
	}
}

// CanManage allows superadmins and lg admins of the record's LGA.
func (v Viewer) CanManage(localGovernmentID uint) bool {
	return v.IsAdmin() && v.CanSee(0, localGovernmentID)
}
