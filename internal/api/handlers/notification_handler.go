package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edrive/ride-hailing/internal/api/dto"
	"github.com/edrive/ride-hailing/internal/api/middleware"
)

// ListNotifications handles GET /v1/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CallerID(c)

	if wantsWatch(c) {
		sub := h.Notifications.Subscribe(ctx, userID)
		inbox, err := h.Notifications.List(ctx, userID, queryLimit(c, 50))
		if err != nil {
			sub.Unsubscribe()
			h.respondError(c, err)
			return
		}
		h.stream(c, sub, inbox)
		return
	}

	inbox, err := h.Notifications.List(ctx, userID, queryLimit(c, 50))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inbox)
}

// MarkNotificationRead handles POST /v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.Notifications.MarkRead(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// MarkAllNotificationsRead handles POST /v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.Notifications.MarkAllRead(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// DeleteNotification handles DELETE /v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	if err := h.Notifications.Delete(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterDeviceToken handles PUT /v1/users/me/device-token
func (h *Handlers) RegisterDeviceToken(c *gin.Context) {
	var req dto.DeviceTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.Notifications.RegisterDevice(c.Request.Context(), middleware.CallerID(c), req.Token); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}
