package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

type Handler struct{ service Service }

func NewHandler(s Service) *Handler { return &Handler{s} }

// ===============================
// Registration
// ===============================

type RegisterRequest struct {
	FullName        string `json:"fullName" example:"Amina Bello"`
	Email           string `json:"email" example:"amina@example.com"`
	Phone           string `json:"phone" example:"08031234567"`
	Password        string `json:"password" example:"secret123"`
	ConfirmPassword string `json:"confirmPassword" example:"secret123"`
}

// Register creates an applicant account
// @Summary Register an applicant
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "registration"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form := validation.RegistrationForm{
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
	if res := validation.ValidateRegistration(form); !res.Valid {
		httpctx.Fail(c, res.Err())
		return
	}

	user, err := h.service.Register(c.Request.Context(), RegisterInput{
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		IPAddress: httpctx.ClientIP(c),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "errors": gin.H{"email": []string{err.Error()}}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "user": user.Payload()})
}

// ===============================
// Login
// ===============================

type loginReq struct {
	Email    string `json:"email" binding:"required" example:"amina@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// Login issues an access and refresh token pair
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginReq true "credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens, user, err := h.service.Login(c.Request.Context(), LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: httpctx.ClientIP(c),
	})
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, ErrAccountInactive) {
			status = http.StatusForbidden
		} else if !errors.Is(err, ErrInvalidCredentials) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"user":         user.Payload(),
	})
}

// ===============================
// Refresh
// ===============================

type refreshReq struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh exchanges a refresh token for a new access token
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body refreshReq true "refresh token"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]interface{}
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	access, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access})
}

// Me returns the authenticated user
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, err := h.service.GetUserByID(c.Request.Context(), httpctx.UserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user.Payload()})
}

// Logout revokes outstanding refresh tokens
// @Summary Logout
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), httpctx.UserID(c), httpctx.ClientIP(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
