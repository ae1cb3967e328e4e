package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/services"
)

type NotificationHandler struct {
	directory moderation.Directory
	service   *services.NotificationService
}

func NewNotificationHandler(dir moderation.Directory, service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{directory: dir, service: service}
}

func (h *NotificationHandler) List(c *gin.Context) {
	actor := caller(c, h.directory)
	if actor == nil || !requireModerator(c, actor) {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.service.List(c.Request.Context(), actor.TenantID, unreadOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	actor := caller(c, h.directory)
	if actor == nil || !requireModerator(c, actor) {
		return
	}
	if err := h.service.MarkAsRead(c.Request.Context(), actor.TenantID, c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	actor := caller(c, h.directory)
	if actor == nil || !requireModerator(c, actor) {
		return
	}
	if err := h.service.MarkAllAsRead(c.Request.Context(), actor.TenantID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark all notifications as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}
