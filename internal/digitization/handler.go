package digitization

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
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

type upload struct {
	field  string
	rule   validation.FileRule
	dir    string
	header *multipart.FileHeader
}

// Submit creates a digitization request from a multipart form
// @Summary Submit digitization request
// @Tags digitization
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param full_name formData string true "Full name"
// @Param nin formData string true "NIN"
// @Param date_of_birth formData string true "YYYY-MM-DD"
// @Param state formData string true "State of origin"
// @Param local_government_id formData int true "LGA ID"
// @Param phone formData string true "Phone"
// @Param email formData string true "Email"
// @Param old_certificate_number formData string true "Paper certificate number"
// @Param issue_year formData string true "Year the paper certificate was issued"
// @Param application_reference formData string false "Approved application to digitize"
// @Param photo formData file true "Passport photograph"
// @Param id_slip formData file false "NIN slip"
// @Param scan formData file true "Certificate scan"
// @Success 201 {object} map[string]interface{}
// @Router /digitization [post]
func (h *Handler) Submit(c *gin.Context) {
	var form SubmitForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uploads := []*upload{
		{field: "photo", rule: validation.DigitizationPhoto, dir: "digitization/photos"},
		{field: "id_slip", rule: validation.DigitizationIDSlip, dir: "digitization/id-slips"},
		{field: "scan", rule: validation.DigitizationScan, dir: "digitization/scans"},
	}
	var sizes []int64
	for _, u := range uploads {
		fh, err := c.FormFile(u.field)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) && u.field == "id_slip" {
				continue
			}
			httpctx.Fail(c, &validation.Error{Field: u.field, Message: u.rule.Label + " is required"})
			return
		}
		if _, err := h.files.Check(fh, u.rule); err != nil {
			httpctx.Fail(c, err)
			return
		}
		u.header = fh
		sizes = append(sizes, fh.Size)
	}
	if err := CheckAttachments(sizes...); err != nil {
		httpctx.Fail(c, err)
		return
	}

	stored := make(map[string]*utils.StoredFile, len(uploads))
	var saved []*utils.StoredFile
	for _, u := range uploads {
		if u.header == nil {
			continue
		}
		f, err := h.files.Save(u.header, u.rule, u.dir)
		if err != nil {
			h.files.Remove(saved...)
			httpctx.Fail(c, err)
			return
		}
		stored[u.field] = f
		saved = append(saved, f)
	}

	req, err := h.service.Submit(c.Request.Context(), SubmitInput{
		UserID:    httpctx.UserID(c),
		Form:      form,
		Photo:     stored["photo"],
		IDSlip:    stored["id_slip"],
		Scan:      stored["scan"],
		IPAddress: httpctx.ClientIP(c),
	})
	if err != nil {
		h.files.Remove(saved...)
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Digitization request submitted", "data": req})
}

// Update edits secondary fields of a pending request
// @Summary Update digitization request
// @Tags digitization
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body UpdateInput true "secondary fields"
// @Success 200 {object} map[string]interface{}
// @Router /digitization/{id} [patch]
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
	req, err := h.service.Update(c.Request.Context(), httpctx.Viewer(c), id, in, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": req})
}

// Finalize completes a paid digitization request
// @Summary Finalize digitization request
// @Tags digitization
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body FinalizeInput true "verified payment reference"
// @Success 200 {object} map[string]interface{}
// @Failure 402 {object} map[string]string
// @Router /digitization/{id}/finalize [post]
func (h *Handler) Finalize(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	var in FinalizeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httpctx.Fail(c, &validation.Error{Field: "payment_reference", Message: "Payment reference is required"})
		return
	}
	req, err := h.service.Finalize(c.Request.Context(), httpctx.Viewer(c), id, in.PaymentReference, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Digitization request finalized", "data": req})
}

// ListMine returns the caller's digitization requests as a bare array
// @Summary My digitization requests
// @Tags digitization
// @Produce json
// @Security BearerAuth
// @Success 200 {array} Request
// @Router /digitization/my [get]
func (h *Handler) ListMine(c *gin.Context) {
	reqs, err := h.service.ListMine(c.Request.Context(), httpctx.UserID(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	if reqs == nil {
		reqs = []Request{}
	}
	c.JSON(http.StatusOK, reqs)
}

// Get returns one digitization request
// @Summary Get digitization request
// @Tags digitization
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Router /digitization/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	req, err := h.service.Get(c.Request.Context(), httpctx.Viewer(c), id)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": req})
}

// History returns the status trail of a digitization request
// @Summary Digitization status history
// @Tags digitization
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Router /digitization/{id}/history [get]
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

// AdminList returns a page of digitization requests for review
// @Summary List digitization requests (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "status"
// @Param search query string false "name, NIN, reference or old certificate number"
// @Param local_government_id query int false "LGA ID (superadmin)"
// @Param page query int false "page"
// @Param page_size query int false "page size"
// @Success 200 {object} httpctx.PageEnvelope
// @Router /admin/digitization [get]
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
		items = []Request{}
	}
	c.JSON(http.StatusOK, httpctx.Envelope(c, items, result.Total, result.Page, result.PageSize))
}

// ChangeStatus moves a digitization request forward
// @Summary Change digitization status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body StatusInput true "target status"
// @Success 200 {object} map[string]interface{}
// @Router /admin/digitization/{id}/status [patch]
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
	req, err := h.service.ChangeStatus(c.Request.Context(), httpctx.Viewer(c), id, to, in.Note, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated", "data": req})
}

// Attachments bundles the uploaded documents of a digitization request
// @Summary Download digitization documents
// @Tags admin
// @Produce application/zip
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {file} binary
// @Router /admin/digitization/{id}/attachments [get]
func (h *Handler) Attachments(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	req, err := h.service.Get(c.Request.Context(), httpctx.Viewer(c), id)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	entries := []utils.ZipEntry{
		{Name: "photo", Path: req.PhotoPath},
		{Name: "nin_slip", Path: req.IDSlipPath},
		{Name: "certificate_scan", Path: req.ScanPath},
	}
	var buf bytes.Buffer
	if err := h.files.WriteZip(&buf, entries); err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Reference+"_documents.zip"))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
