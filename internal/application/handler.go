package application

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lgcert/indigene-certificate/internal/httpctx"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/lgcert/indigene-certificate/utils"
)

type Handler struct {
	service Service
	files   *utils.FileStore
}

func NewHandler(service Service, files *utils.FileStore) *Handler {
	return &Handler{service: service, files: files}
}

// Submit creates an application from a multipart form
// @Summary Submit application
// @Tags applications
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param full_name formData string true "Full name"
// @Param nin formData string true "NIN"
// @Param date_of_birth formData string true "YYYY-MM-DD"
// @Param state formData string true "State of origin"
// @Param local_government_id formData int true "LGA ID"
// @Param village formData string true "Village"
// @Param phone formData string false "Phone"
// @Param email formData string false "Email"
// @Param photo formData file true "Passport photograph"
// @Param id_slip formData file true "NIN slip"
// @Success 201 {object} map[string]interface{}
// @Router /applications [post]
func (h *Handler) Submit(c *gin.Context) {
	var form SubmitForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	photoHeader, err := c.FormFile("photo")
	if err != nil {
		httpctx.Fail(c, &validation.Error{Field: "photo", Message: validation.ApplicationPhoto.Label + " is required"})
		return
	}
	slipHeader, err := c.FormFile("id_slip")
	if err != nil {
		httpctx.Fail(c, &validation.Error{Field: "id_slip", Message: validation.ApplicationIDSlip.Label + " is required"})
		return
	}

	photo, err := h.files.Save(photoHeader, validation.ApplicationPhoto, "applications/photos")
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	slip, err := h.files.Save(slipHeader, validation.ApplicationIDSlip, "applications/id-slips")
	if err != nil {
		h.files.Remove(photo)
		httpctx.Fail(c, err)
		return
	}

	app, err := h.service.Submit(c.Request.Context(), SubmitInput{
		UserID:    httpctx.UserID(c),
		Form:      form,
		Photo:     photo,
		IDSlip:    slip,
		IPAddress: httpctx.ClientIP(c),
	})
	if err != nil {
		h.files.Remove(photo, slip)
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Application submitted", "data": app})
}

// Update sets the secondary fields of a pending application
// @Summary Update application details
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body UpdateInput true "secondary fields"
// @Success 200 {object} map[string]interface{}
// @Router /applications/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	app, err := h.service.Update(c.Request.Context(), httpctx.Viewer(c), id, in, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": app})
}

// ListMine returns the caller's applications as a bare array
// @Summary My applications
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} Application
// @Router /applications/my [get]
func (h *Handler) ListMine(c *gin.Context) {
	apps, err := h.service.ListMine(c.Request.Context(), httpctx.UserID(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	if apps == nil {
		apps = []Application{}
	}
	c.JSON(http.StatusOK, apps)
}

// Get returns one application visible to the caller
// @Summary Get application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} map[string]interface{}
// @Router /applications/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	app, err := h.service.Get(c.Request.Context(), httpctx.Viewer(c), id)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": app})
}

// History returns the status trail of an application
// @Summary Application status history
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} map[string]interface{}
// @Router /applications/{id}/history [get]
func (h *Handler) History(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	history, err := h.service.History(c.Request.Context(), httpctx.Viewer(c), id)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}

// AdminList returns a page of applications for review
// @Summary List applications (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "status"
// @Param payment_status query string false "payment status"
// @Param search query string false "name, NIN or reference"
// @Param local_government_id query int false "LGA ID (superadmin)"
// @Param page query int false "page"
// @Param page_size query int false "page size"
// @Success 200 {object} httpctx.PageEnvelope
// @Router /admin/applications [get]
func (h *Handler) AdminList(c *gin.Context) {
	page, size := httpctx.Paging(c, 10, 100)
	filter := Filter{
		Status:            c.Query("status"),
		PaymentStatus:     c.Query("payment_status"),
		Search:            c.Query("search"),
		LocalGovernmentID: httpctx.QueryUint(c, "local_government_id"),
		Page:              page,
		PageSize:          size,
	}
	if scope := httpctx.LGAScope(c); scope != nil {
		filter.LocalGovernmentID = scope
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	items := result.Items
	if items == nil {
		items = []Application{}
	}
	c.JSON(http.StatusOK, httpctx.Envelope(c, items, result.Total, result.Page, result.PageSize))
}

// ChangeStatus moves an application forward in its lifecycle
// @Summary Change application status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param body body StatusInput true "target status"
// @Success 200 {object} map[string]interface{}
// @Failure 402 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/applications/{id}/status [patch]
func (h *Handler) ChangeStatus(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	var in StatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := lifecycle.ParseStatus(in.Status)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	app, err := h.service.ChangeStatus(c.Request.Context(), httpctx.Viewer(c), id, to, in.Note, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated", "data": app})
}

// Attachments bundles the uploaded documents of an application
// @Summary Download application documents
// @Tags admin
// @Produce application/zip
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {file} binary
// @Router /admin/applications/{id}/attachments [get]
func (h *Handler) Attachments(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	app, err := h.service.Get(c.Request.Context(), httpctx.Viewer(c), id)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	entries := []utils.ZipEntry{
		{Name: "photo", Path: app.PhotoPath},
		{Name: "nin_slip", Path: app.IDSlipPath},
	}
	var buf bytes.Buffer
	if err := h.files.WriteZip(&buf, entries); err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", app.Reference+"_documents.zip"))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
