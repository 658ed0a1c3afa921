package localgovernment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List returns local governments as a bare array
// @Summary List local governments
// @Tags local-governments
// @Produce json
// @Param state query string false "state"
// @Param search query string false "name or code"
// @Success 200 {array} LocalGovernment
// @Router /local-governments [get]
func (h *Handler) List(c *gin.Context) {
	filter := Filter{
		State:      c.Query("state"),
		Search:     c.Query("search"),
		ActiveOnly: httpctx.Role(c) == "",
	}
	if v, err := strconv.ParseBool(c.Query("active")); err == nil && v {
		filter.ActiveOnly = true
	}
	lgas, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	if lgas == nil {
		lgas = []LocalGovernment{}
	}
	c.JSON(http.StatusOK, lgas)
}

// Get returns one local government
// @Summary Get local government
// @Tags local-governments
// @Produce json
// @Param id path int true "LGA ID"
// @Success 200 {object} map[string]interface{}
// @Router /local-governments/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	lga, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lga})
}

// GetFees returns the fee schedule of a local government
// @Summary Local government fees
// @Tags local-governments
// @Produce json
// @Param id path int true "LGA ID"
// @Success 200 {object} map[string]interface{}
// @Router /local-governments/{id}/fees [get]
func (h *Handler) GetFees(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	fees, err := h.service.Fees(c.Request.Context(), id)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": fees})
}

// Create adds a local government (superadmin)
// @Summary Create local government
// @Tags superadmin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body Input true "local government"
// @Success 201 {object} map[string]interface{}
// @Router /superadmin/local-governments [post]
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lga, err := h.service.Create(c.Request.Context(), httpctx.UserID(c), in, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": lga})
}

// Update replaces a local government's details (superadmin)
// @Summary Update local government
// @Tags superadmin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "LGA ID"
// @Param body body Input true "local government"
// @Success 200 {object} map[string]interface{}
// @Router /superadmin/local-governments/{id} [put]
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
	lga, err := h.service.Update(c.Request.Context(), httpctx.UserID(c), id, in, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lga})
}

// Delete removes a local government (superadmin)
// @Summary Delete local government
// @Tags superadmin
// @Security BearerAuth
// @Param id path int true "LGA ID"
// @Success 200 {object} map[string]string
// @Router /superadmin/local-governments/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), httpctx.UserID(c), id, httpctx.ClientIP(c)); err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Local government deleted"})
}
