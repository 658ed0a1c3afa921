package apiclient

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgcert/indigene-certificate/internal/auth"
)

func TestFileStorePersistsAllThree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lgcert", "session.json")
	store := FileStore{Path: path}

	s, err := NewSession(store)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())

	user := &User{ID: 3, FullName: "Ada Obi", Role: auth.RoleApplicant}
	require.NoError(t, s.Start("a", "r", user))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored, err := NewSession(store)
	require.NoError(t, err)
	assert.Equal(t, "a", restored.AccessToken())
	assert.Equal(t, "r", restored.RefreshToken())
	assert.Equal(t, "Ada Obi", restored.User().FullName)

	require.NoError(t, restored.Clear())
	assert.Empty(t, restored.AccessToken())
	assert.Empty(t, restored.RefreshToken())
	assert.Nil(t, restored.User())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSetAccessTokenKeepsRefreshToken(t *testing.T) {
	s, err := NewSession(&MemoryStore{})
	require.NoError(t, err)
	require.NoError(t, s.Start("a1", "r1", &User{ID: 1}))

	require.NoError(t, s.SetAccessToken("a2"))
	assert.Equal(t, "a2", s.AccessToken())
	assert.Equal(t, "r1", s.RefreshToken())
	assert.NotNil(t, s.User())
}

func TestUserHas(t *testing.T) {
	admin := &User{Role: auth.RoleLGAdmin, Permissions: []auth.PermissionFlag{auth.PermViewApplications}}
	assert.True(t, admin.Has(auth.PermViewApplications))
	assert.False(t, admin.Has(auth.PermManageFields))

	super := &User{Role: auth.RoleSuperAdmin}
	assert.True(t, super.Has(auth.PermManageFields))

	applicant := &User{Role: auth.RoleApplicant, Permissions: []auth.PermissionFlag{auth.PermViewApplications}}
	assert.False(t, applicant.Has(auth.PermViewApplications))

	var nobody *User
	assert.False(t, nobody.Has(auth.PermViewApplications))
}
