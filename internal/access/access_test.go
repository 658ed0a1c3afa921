package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewer(t *testing.T) {
	lga := uint(4)
	applicant := Viewer{UserID: 9, Role: RoleApplicant}
	admin := Viewer{UserID: 2, Role: RoleLGAdmin, Scope: &lga}
	root := Viewer{UserID: 1, Role: RoleSuperAdmin}

	assert.True(t, applicant.CanSee(9, 1))
	assert.False(t, applicant.CanSee(10, 1))
	assert.False(t, applicant.CanManage(1))

	assert.True(t, admin.CanSee(9, 4))
	assert.False(t, admin.CanSee(9, 5))
	assert.True(t, admin.CanManage(4))
	assert.False(t, admin.CanManage(5))

	assert.True(t, root.CanManage(5))
	assert.False(t, Viewer{}.CanSee(0, 1))
}
