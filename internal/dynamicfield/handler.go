package dynamicfield

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListForLGA returns the extra fields of one local government as a bare array
// @Summary Dynamic fields of a local government
// @Tags local-governments
// @Produce json
// @Param id path int true "LGA ID"
// @Success 200 {array} DynamicField
// @Router /local-governments/{id}/fields [get]
func (h *Handler) ListForLGA(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	h.respondList(c, id)
}

// ListAdmin lists fields for the admin's own local government
// @Summary Dynamic fields (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param local_government_id query int false "LGA ID (superadmin)"
// @Success 200 {array} DynamicField
// @Router /admin/dynamic-fields [get]
func (h *Handler) ListAdmin(c *gin.Context) {
	lgaID := httpctx.QueryUint(c, "local_government_id")
	if scope := httpctx.LGAScope(c); scope != nil {
		lgaID = scope
	}
	if lgaID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "local_government_id is required"})
		return
	}
	h.respondList(c, *lgaID)
}

func (h *Handler) respondList(c *gin.Context, lgaID uint) {
	fields, err := h.service.List(c.Request.Context(), lgaID)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	if fields == nil {
		fields = []DynamicField{}
	}
	c.JSON(http.StatusOK, fields)
}

// Create adds a dynamic field
// @Summary Create dynamic field
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body Input true "field"
// @Success 201 {object} map[string]interface{}
// @Router /admin/dynamic-fields [post]
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := h.service.Create(c.Request.Context(), httpctx.UserID(c), httpctx.LGAScope(c), in, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": f})
}

// Update edits a dynamic field
// @Summary Update dynamic field
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "field ID"
// @Param body body Input true "field"
// @Success 200 {object} map[string]interface{}
// @Router /admin/dynamic-fields/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := h.service.Update(c.Request.Context(), httpctx.UserID(c), httpctx.LGAScope(c), id, in, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": f})
}

// Delete removes a dynamic field
// @Summary Delete dynamic field
// @Tags admin
// @Security BearerAuth
// @Param id path int true "field ID"
// @Success 200 {object} map[string]string
// @Router /admin/dynamic-fields/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), httpctx.UserID(c), httpctx.LGAScope(c), id, httpctx.ClientIP(c)); err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Field deleted"})
}
