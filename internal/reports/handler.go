package reports

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

// Export downloads a report
// @Summary Export report
// @Tags reports
// @Produce application/octet-stream
// @Security BearerAuth
// @Param report path string true "applications | digitization | payments | audit_logs"
// @Param format query string false "csv | excel | pdf"
// @Param date_range query string false "daily | weekly | monthly | yearly | custom"
// @Param start_date query string false "YYYY-MM-DD (custom range)"
// @Param end_date query string false "YYYY-MM-DD (custom range)"
// @Param status query string false "Status filter"
// @Param local_government_id query int false "LGA ID (superadmin only)"
// @Success 200 {file} file
// @Router /admin/reports/{report} [get]
func (h *Handler) Export(c *gin.Context) {
	req := Request{
		Report:    c.Param("report"),
		Format:    c.DefaultQuery("format", FormatCSV),
		DateRange: c.DefaultQuery("date_range", DateRangeMonthly),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Status:    c.Query("status"),
	}
	req.LocalGovernmentID = httpctx.LGAScope(c)
	if req.LocalGovernmentID == nil {
		req.LocalGovernmentID = httpctx.QueryUint(c, "local_government_id")
	}

	file, err := h.service.Export(c.Request.Context(), httpctx.UserID(c), req, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
