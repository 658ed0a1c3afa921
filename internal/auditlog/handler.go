package auditlog

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ParseFilter reads audit log query parameters. LG admins are pinned to their own local government.
func ParseFilter(c *gin.Context) (AuditLogFilter, error) {
	filter := AuditLogFilter{
		UserID:            httpctx.QueryUint(c, "user_id"),
		LocalGovernmentID: httpctx.QueryUint(c, "local_government_id"),
		Action:            c.Query("action"),
		Status:            c.Query("status"),
		Search:            c.Query("search"),
	}
	if scope := httpctx.LGAScope(c); scope != nil {
		filter.LocalGovernmentID = scope
	}

	if fromDateStr := c.Query("from_date"); fromDateStr != "" {
		fromDate, err := time.Parse("2006-01-02", fromDateStr)
		if err != nil {
			return filter, errBadDate("from_date")
		}
		filter.FromDate = &fromDate
	}

	if toDateStr := c.Query("to_date"); toDateStr != "" {
		toDate, err := time.Parse("2006-01-02", toDateStr)
		if err != nil {
			return filter, errBadDate("to_date")
		}
		endOfDay := toDate.Add(24*time.Hour - time.Second)
		filter.ToDate = &endOfDay
	}

	filter.Page, filter.Limit = httpctx.Paging(c, 20, 100)
	return filter, nil
}

type badDateError string

func (e badDateError) Error() string { return "Invalid " + string(e) + " format. Use YYYY-MM-DD" }

func errBadDate(field string) error { return badDateError(field) }

// GetAuditLogs handles GET /auditlogs - retrieves audit logs with filtering and pagination
// @Summary Get audit logs
// @Description Retrieve audit logs with optional filters and pagination
// @Tags AuditLog
// @Produce json
// @Param user_id query uint false "Filter by user ID"
// @Param local_government_id query uint false "Filter by local government"
// @Param action query string false "Filter by action (partial match)"
// @Param status query string false "Filter by status"
// @Param search query string false "Search action, user name or IP"
// @Param from_date query string false "Filter from date (YYYY-MM-DD)"
// @Param to_date query string false "Filter to date (YYYY-MM-DD)"
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Number of records per page (default: 20)"
// @Success 200 {object} PaginatedAuditLogs
// @Router /auditlogs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	filter, err := ParseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.GetAuditLogs(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit logs"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAuditLogByID handles GET /auditlogs/:id
// @Summary Get audit log by ID
// @Tags AuditLog
// @Produce json
// @Param id path uint true "Audit Log ID"
// @Success 200 {object} AuditLogResponse
// @Router /auditlogs/{id} [get]
func (h *Handler) GetAuditLogByID(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}

	log, err := h.service.GetAuditLogByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit log not found"})
		return
	}
	if scope := httpctx.LGAScope(c); scope != nil && (log.LocalGovernmentID == nil || *log.LocalGovernmentID != *scope) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit log not found"})
		return
	}

	c.JSON(http.StatusOK, log)
}

// GetAuditLogStats handles GET /auditlogs/stats - last 7 days summary
// @Summary Get audit log statistics
// @Tags AuditLog
// @Produce json
// @Success 200 {object} Stats
// @Router /auditlogs/stats [get]
func (h *Handler) GetAuditLogStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context(), time.Now().AddDate(0, 0, -7))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit log stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
