package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/services"
)

type AutoModHandler struct {
	directory moderation.Directory
	service   *services.AutoModService
}

func NewAutoModHandler(dir moderation.Directory, service *services.AutoModService) *AutoModHandler {
	return &AutoModHandler{directory: dir, service: service}
}

type ruleRequest struct {
	Threshold int               `json:"threshold" binding:"required"`
	Action    models.RuleAction `json:"action" binding:"required"`
	Duration  string            `json:"duration"`
	Reason    string            `json:"reason"`
}

func (h *AutoModHandler) List(c *gin.Context) {
	actor := caller(c, h.directory)
	if actor == nil || !requireModerator(c, actor) {
		return
	}
	rules, err := h.service.List(c.Request.Context(), actor.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rules"})
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *AutoModHandler) Get(c *gin.Context) {
	actor := caller(c, h.directory)
	if actor == nil || !requireModerator(c, actor) {
		return
	}
	threshold, ok := thresholdParam(c)
	if !ok {
		return
	}
	rule, err := h.service.Get(c.Request.Context(), actor.TenantID, threshold)
	if errors.Is(err, services.ErrRuleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rule"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// Upsert handles PUT /automod/rules. A rule at an existing threshold is
// replaced.
func (h *AutoModHandler) Upsert(c *gin.Context) {
	actor := caller(c, h.directory)
	if actor == nil || !requireAdmin(c, actor) {
		return
	}
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule := &models.AutoModRule{
		TenantID:  actor.TenantID,
		Threshold: req.Threshold,
		Action:    req.Action,
		Duration:  req.Duration,
		Reason:    req.Reason,
		CreatedBy: actor.ID,
	}
	if err := h.service.Upsert(c.Request.Context(), rule); err != nil {
		if errors.Is(err, services.ErrInvalidRule) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": moderation.CodeInvalidCommand})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rule"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *AutoModHandler) Delete(c *gin.Context) {
	actor := caller(c, h.directory)
	if actor == nil || !requireAdmin(c, actor) {
		return
	}
	threshold, ok := thresholdParam(c)
	if !ok {
		return
	}
	err := h.service.Delete(c.Request.Context(), actor.TenantID, threshold)
	if errors.Is(err, services.ErrRuleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted"})
}

func thresholdParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("threshold"))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a positive integer"})
		return 0, false
	}
	return n, true
}
