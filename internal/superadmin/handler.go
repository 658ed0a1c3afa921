package superadmin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auth"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// failAdmin maps auth's plain errors; anything unrecognised is a rejected request.
func failAdmin(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		httpctx.Fail(c, err)
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidRole):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case apperr.Status(err) != http.StatusInternalServerError:
		httpctx.Fail(c, err)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// =========================== LG ADMINS ===========================

// CreateAdmin creates an lg admin bound to one local government
// @Summary Create LG admin
// @Tags superadmin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateAdminRequest true "Admin"
// @Success 201 {object} AdminResponse
// @Router /superadmin/users [post]
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.service.CreateAdmin(c.Request.Context(), httpctx.UserID(c), req, httpctx.ClientIP(c))
	if err != nil {
		failAdmin(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "LG admin created", "data": toResponse(*user)})
}

// ListAdmins lists lg admins, optionally for one local government
// @Summary List LG admins
// @Tags superadmin
// @Produce json
// @Security BearerAuth
// @Param local_government_id query int false "LGA ID"
// @Success 200 {array} AdminResponse
// @Router /superadmin/users [get]
func (h *Handler) ListAdmins(c *gin.Context) {
	items, err := h.service.ListAdmins(c.Request.Context(), httpctx.QueryUint(c, "local_government_id"))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

// @Summary Update LG admin permissions
// @Tags superadmin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body UpdatePermissionsRequest true "Permission flags"
// @Success 200 {object} AdminResponse
// @Router /superadmin/users/{id}/permissions [patch]
func (h *Handler) UpdatePermissions(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.service.UpdatePermissions(c.Request.Context(), httpctx.UserID(c), id, req.Permissions, httpctx.ClientIP(c))
	if err != nil {
		failAdmin(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Permissions updated", "data": toResponse(*user)})
}

// @Summary Activate or deactivate a user
// @Tags superadmin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body UpdateStatusRequest true "Status"
// @Success 200 {object} map[string]string
// @Router /superadmin/users/{id}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.UpdateStatus(c.Request.Context(), httpctx.UserID(c), id, req.Status, httpctx.ClientIP(c)); err != nil {
		failAdmin(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User status updated to " + req.Status})
}

// BulkUpload imports lg admins from a CSV file
// @Summary Bulk upload LG admins
// @Tags superadmin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV with full_name,email,phone,password,local_government_id,permissions"
// @Success 200 {object} BulkUploadResult
// @Router /superadmin/users/bulk-upload [post]
func (h *Handler) BulkUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read file"})
		return
	}
	defer f.Close()

	result, err := h.service.BulkUploadAdmins(c.Request.Context(), f, httpctx.UserID(c), httpctx.ClientIP(c))
	if err != nil {
		failAdmin(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// =========================== DASHBOARD ===========================

// Dashboard returns landing-page counters, scoped for lg admins
// @Summary Dashboard stats
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param local_government_id query int false "LGA ID (superadmin only)"
// @Param months query int false "Months of history (default 6)"
// @Success 200 {object} Dashboard
// @Router /admin/dashboard [get]
func (h *Handler) Dashboard(c *gin.Context) {
	scope := httpctx.LGAScope(c)
	if scope == nil {
		scope = httpctx.QueryUint(c, "local_government_id")
	}
	months, _ := strconv.Atoi(c.Query("months"))
	stats, err := h.service.Dashboard(c.Request.Context(), scope, months)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
