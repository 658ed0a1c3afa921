package notification

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lgcert/indigene-certificate/internal/httpctx"
)

type Handler struct {
	service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{service: s}
}

// RegisterDevice stores an FCM token for the caller
// @Summary Register device token
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RegisterDeviceRequest true "Device"
// @Success 201 {object} DeviceToken
// @Router /notifications/devices [post]
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.service.RegisterDevice(c.Request.Context(), httpctx.UserID(c), req)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": d})
}

// @Summary Unregister device token
// @Tags notifications
// @Security BearerAuth
// @Param token path string true "Device token"
// @Success 204
// @Router /notifications/devices/{token} [delete]
func (h *Handler) RemoveDevice(c *gin.Context) {
	if err := h.service.RemoveDevice(c.Request.Context(), httpctx.UserID(c), c.Param("token")); err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListInApp returns the caller's bell notifications, newest first
// @Summary My notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Unread only"
// @Param limit query int false "Max items"
// @Success 200 {array} InAppNotification
// @Router /notifications [get]
func (h *Handler) ListInApp(c *gin.Context) {
	unread, _ := strconv.ParseBool(c.Query("unread"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.service.ListInApp(c.Request.Context(), httpctx.UserID(c), unread, limit)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// @Summary Mark notification read
// @Tags notifications
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} map[string]string
// @Router /notifications/{id}/read [patch]
func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := httpctx.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), httpctx.UserID(c), id); err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

// @Summary Mark all notifications read
// @Tags notifications
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /notifications/read-all [patch]
func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.service.MarkAllRead(c.Request.Context(), httpctx.UserID(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked as read", "updated": n})
}

// @Summary Delivery history
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} NotificationLog
// @Router /notifications/logs [get]
func (h *Handler) ListLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.service.ListLogs(c.Request.Context(), httpctx.UserID(c), limit)
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Stream pushes new in-app notifications as server-sent events.
// @Summary Notification stream
// @Tags notifications
// @Produce text/event-stream
// @Security BearerAuth
// @Router /notifications/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	ch, release := h.service.Subscribe(ctx, httpctx.UserID(c))
	defer release()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", "ok")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("inapp", msg)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
