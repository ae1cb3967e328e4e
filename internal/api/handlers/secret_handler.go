package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/services"
)

// SecretHandler manages the caller's own provider credential. The key is
// accepted in plaintext and only ever returned masked.
type SecretHandler struct {
	service *services.SecretService
}

func NewSecretHandler(service *services.SecretService) *SecretHandler {
	return &SecretHandler{service: service}
}

type secretRequest struct {
	Key      string `json:"key" binding:"required"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
}

func (h *SecretHandler) Get(c *gin.Context) {
	owner := c.GetString(middleware.ActorIDKey)
	row, masked, err := h.service.Masked(c.Request.Context(), owner)
	switch {
	case errors.Is(err, services.ErrSecretNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no key stored"})
		return
	case errors.Is(err, services.ErrSecretCorrupt):
		c.JSON(http.StatusConflict, gin.H{"error": "your stored key could not be read and was removed; re-enter secret", "code": "decryption"})
		return
	case err != nil:
		middleware.GetRequestLogger(c).WithError(err).Error("failed to load secret")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"provider":   row.Provider,
		"model":      row.Model,
		"endpoint":   row.Endpoint,
		"key":        masked,
		"updated_at": row.UpdatedAt,
	})
}

func (h *SecretHandler) Put(c *gin.Context) {
	var req secretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	owner := c.GetString(middleware.ActorIDKey)
	err := h.service.Set(c.Request.Context(), owner, services.SecretInput{
		Key:      req.Key,
		Provider: req.Provider,
		Model:    req.Model,
		Endpoint: req.Endpoint,
	})
	if errors.Is(err, services.ErrInvalidSecret) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to store secret")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key stored"})
}

func (h *SecretHandler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.GetString(middleware.ActorIDKey))
	if errors.Is(err, services.ErrSecretNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no key stored"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key deleted"})
}
