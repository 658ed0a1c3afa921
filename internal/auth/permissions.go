package auth

import "fmt"

// PermissionFlag gates lg-admin dashboard sections. The set is closed.
type PermissionFlag string

const (
	PermViewApplications   PermissionFlag = "view_applications"
	PermReviewApplications PermissionFlag = "review_applications"
	PermViewDigitization   PermissionFlag = "view_digitization"
	PermReviewDigitization PermissionFlag = "review_digitization"
	PermManageFields       PermissionFlag = "manage_fields"
	PermViewReports        PermissionFlag = "view_reports"
)

var AllPermissions = []PermissionFlag{
	PermViewApplications,
	PermReviewApplications,
	PermViewDigitization,
	PermReviewDigitization,
	PermManageFields,
	PermViewReports,
}

func (p PermissionFlag) Valid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePermissions returns the recognised flags and an error naming the first unknown one.
func ParsePermissions(raw []string) ([]PermissionFlag, error) {
	out := make([]PermissionFlag, 0, len(raw))
	seen := make(map[PermissionFlag]bool, len(raw))
	var firstErr error
	for _, s := range raw {
		p := PermissionFlag(s)
		if !p.Valid() {
			if firstErr == nil {
				firstErr = fmt.Errorf("unknown permission %q", s)
			}
			continue
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, firstErr
}

func HasPermission(flags []PermissionFlag, want PermissionFlag) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
