package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/services"
)

// NotificationProviderHandler manages a tenant's shoutrrr destinations.
// Every route requires Administrator.
type NotificationProviderHandler struct {
	directory moderation.Directory
	service   *services.NotificationService
}

func NewNotificationProviderHandler(dir moderation.Directory, service *services.NotificationService) *NotificationProviderHandler {
	return &NotificationProviderHandler{directory: dir, service: service}
}

func (h *NotificationProviderHandler) admin(c *gin.Context) *moderation.Actor {
	actor := caller(c, h.directory)
	if actor == nil || !requireAdmin(c, actor) {
		return nil
	}
	return actor
}

func (h *NotificationProviderHandler) List(c *gin.Context) {
	actor := h.admin(c)
	if actor == nil {
		return
	}
	providers, err := h.service.ListProviders(c.Request.Context(), actor.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list providers"})
		return
	}
	c.JSON(http.StatusOK, providers)
}

func (h *NotificationProviderHandler) Create(c *gin.Context) {
	actor := h.admin(c)
	if actor == nil {
		return
	}
	var provider models.NotificationProvider
	if err := c.ShouldBindJSON(&provider); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	provider.ID = ""
	provider.TenantID = actor.TenantID

	if err := h.service.CreateProvider(c.Request.Context(), &provider); err != nil {
		if errors.Is(err, services.ErrInvalidProvider) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create provider"})
		return
	}
	c.JSON(http.StatusCreated, provider)
}

func (h *NotificationProviderHandler) Update(c *gin.Context) {
	actor := h.admin(c)
	if actor == nil {
		return
	}
	var provider models.NotificationProvider
	if err := c.ShouldBindJSON(&provider); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	provider.ID = c.Param("id")
	provider.TenantID = actor.TenantID

	if err := h.service.UpdateProvider(c.Request.Context(), &provider); err != nil {
		if errors.Is(err, services.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update provider"})
		return
	}
	c.JSON(http.StatusOK, provider)
}

func (h *NotificationProviderHandler) Delete(c *gin.Context) {
	actor := h.admin(c)
	if actor == nil {
		return
	}
	if err := h.service.DeleteProvider(c.Request.Context(), actor.TenantID, c.Param("id")); err != nil {
		if errors.Is(err, services.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete provider"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Provider deleted"})
}

func (h *NotificationProviderHandler) Test(c *gin.Context) {
	if h.admin(c) == nil {
		return
	}
	var provider models.NotificationProvider
	if err := c.ShouldBindJSON(&provider); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.TestProvider(provider); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test notification sent"})
}
