package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, Service) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	h := NewHandler(svc)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	r.GET("/auth/me", func(c *gin.Context) {
		c.Set(httpctx.KeyUserID, uint(1))
		h.Me(c)
	})
	return r, svc
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterHandlerValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(r, "/auth/register", RegisterRequest{
		FullName: "Amina", Email: "amina@example.com", Phone: "08031234567",
		Password: "secret123", ConfirmPassword: "secret124",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error  string              `json:"error"`
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Passwords do not match", body.Error)
	assert.Equal(t, []string{"Passwords do not match"}, body.Errors["confirm_password"])

	ok := RegisterRequest{
		FullName: "Amina", Email: "amina@example.com", Phone: "08031234567",
		Password: "secret123", ConfirmPassword: "secret123",
	}
	w = postJSON(r, "/auth/register", ok)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(r, "/auth/register", ok)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginRefreshMeHandlers(t *testing.T) {
	r, _ := newTestRouter(t)
	postJSON(r, "/auth/register", RegisterRequest{
		FullName: "Amina", Email: "amina@example.com", Phone: "08031234567",
		Password: "secret123", ConfirmPassword: "secret123",
	})

	w := postJSON(r, "/auth/login", gin.H{"email": "amina@example.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(r, "/auth/login", gin.H{"email": "amina@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
		User         UserPayload `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, RoleApplicant, login.User.Role)
	assert.Equal(t, []PermissionFlag{}, login.User.Permissions)

	w = postJSON(r, "/auth/refresh", gin.H{"refreshToken": login.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accessToken")

	w = postJSON(r, "/auth/refresh", gin.H{"refreshToken": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "amina@example.com")
}
