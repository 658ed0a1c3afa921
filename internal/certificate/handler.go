package certificate

import (
	"fmt"
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

// ListMine returns the caller's certificates
// @Summary My certificates
// @Tags certificates
// @Produce json
// @Security BearerAuth
// @Success 200 {array} Certificate
// @Router /certificates/my [get]
func (h *Handler) ListMine(c *gin.Context) {
	certs, err := h.service.ListMine(c.Request.Context(), httpctx.UserID(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	if certs == nil {
		certs = []Certificate{}
	}
	c.JSON(http.StatusOK, certs)
}

// Download streams the certificate PDF
// @Summary Download certificate
// @Tags certificates
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "certificate row ID"
// @Success 200 {file} file
// @Router /certificates/{id}/download [get]
func (h *Handler) Download(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	cert, pdf, err := h.service.Download(c.Request.Context(), httpctx.Viewer(c), id)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", cert.CertificateID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// QR returns the verification QR code as PNG
// @Summary Certificate QR code
// @Tags certificates
// @Produce image/png
// @Security BearerAuth
// @Param id path int true "certificate row ID"
// @Success 200 {file} file
// @Router /certificates/{id}/qr [get]
func (h *Handler) QR(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	png, err := h.service.QR(c.Request.Context(), httpctx.Viewer(c), id)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Verify checks a certificate identifier (public)
// @Summary Verify certificate
// @Tags certificates
// @Produce json
// @Param certificateId path string true "certificate identifier"
// @Success 200 {object} map[string]interface{}
// @Router /certificates/verify/{certificateId} [get]
func (h *Handler) Verify(c *gin.Context) {
	result, err := h.service.Verify(c.Request.Context(), c.Param("certificateId"))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	status := http.StatusOK
	if !result.Valid {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"data": result})
}
