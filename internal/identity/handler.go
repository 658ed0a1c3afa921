package identity

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lgcert/indigene-certificate/internal/httpctx"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// VerifyNIN checks a NIN against the registry and flags the record on a match
// @Summary Verify NIN
// @Tags identity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body VerifyInput true "NIN and optional record"
// @Success 200 {object} Result
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /identity/verify-nin [post]
func (h *Handler) VerifyNIN(c *gin.Context) {
	var in VerifyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		if verr := validation.ValidateNIN(in.NIN).Err(); verr != nil {
			httpctx.Fail(c, verr)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.Verify(c.Request.Context(), httpctx.Viewer(c), in, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
