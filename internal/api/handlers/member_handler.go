package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/services"
)

// MemberHandler exposes the member directory the platform bridge keeps in
// sync.
type MemberHandler struct {
	service *services.MemberService
}

func NewMemberHandler(service *services.MemberService) *MemberHandler {
	return &MemberHandler{service: service}
}

type memberSnapshot struct {
	UserID       string   `json:"user_id" binding:"required"`
	DisplayName  string   `json:"display_name"`
	Rank         int      `json:"rank"`
	Capabilities []string `json:"capabilities"`
}

type syncRequest struct {
	Name    string           `json:"name"`
	OwnerID string           `json:"owner_id" binding:"required"`
	Members []memberSnapshot `json:"members" binding:"dive"`
}

func (h *MemberHandler) List(c *gin.Context) {
	actor := caller(c, h.service)
	if actor == nil || !requireModerator(c, actor) {
		return
	}
	members, err := h.service.List(c.Request.Context(), actor.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list members"})
		return
	}
	c.JSON(http.StatusOK, members)
}

// Sync handles PUT /members.
func (h *MemberHandler) Sync(c *gin.Context) {
	actor := caller(c, h.service)
	if actor == nil || !requireAdmin(c, actor) {
		return
	}
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var unknown []string
	members := make([]models.Member, 0, len(req.Members))
	for _, s := range req.Members {
		m := models.Member{UserID: s.UserID, DisplayName: s.DisplayName, Rank: s.Rank}
		for _, name := range s.Capabilities {
			if !moderation.IsKnownCapability(name) {
				unknown = append(unknown, name)
			}
		}
		m.SetCapabilityNames(s.Capabilities)
		members = append(members, m)
	}
	if len(unknown) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown capabilities", "capabilities": unknown})
		return
	}

	if !actor.IsOwner {
		if err := h.checkDelegation(c, actor, req.OwnerID, members); err != nil {
			abortModeration(c, err)
			return
		}
	}

	tenant := &models.Tenant{ID: actor.TenantID, Name: req.Name, OwnerID: req.OwnerID}
	if err := h.service.Sync(c.Request.Context(), tenant, members); err != nil {
		if errors.Is(err, services.ErrInvalidMember) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Members synced", "count": len(members)})
}

// checkDelegation limits a non-owner administrator to entries ranked below
// their own. Ownership and the caller's own grant cannot change. Entries whose
// rank and capabilities match the stored row pass, so a full snapshot can be
// replayed.
func (h *MemberHandler) checkDelegation(c *gin.Context, actor *moderation.Actor, ownerID string, members []models.Member) error {
	ctx := c.Request.Context()
	tenant, err := h.service.GetTenant(ctx, actor.TenantID)
	if err != nil {
		return err
	}
	if ownerID != tenant.OwnerID {
		return &moderation.Error{Code: moderation.CodeOwnerProtected, Message: "only the owner can transfer ownership"}
	}
	current, err := h.service.List(ctx, actor.TenantID)
	if err != nil {
		return err
	}
	stored := make(map[string]models.Member, len(current))
	for _, m := range current {
		stored[m.UserID] = m
	}

	for _, m := range members {
		old, exists := stored[m.UserID]
		if exists && sameGrant(old, m) {
			continue
		}
		switch {
		case m.UserID == actor.ID:
			return &moderation.Error{Code: moderation.CodeSelfActionForbidden, Message: "you cannot change your own rank or capabilities"}
		case m.UserID == tenant.OwnerID:
			return &moderation.Error{Code: moderation.CodeOwnerProtected, Message: "the community owner's entry can only be changed by the owner"}
		case exists && old.Rank >= actor.Rank:
			return &moderation.Error{Code: moderation.CodeInsufficientRank, Message: fmt.Sprintf("%s is not ranked below you", m.UserID)}
		case m.Rank >= actor.Rank:
			return &moderation.Error{Code: moderation.CodeInsufficientRank, Message: fmt.Sprintf("cannot give %s rank %d, which is not below yours", m.UserID, m.Rank)}
		}
	}
	return nil
}

func sameGrant(old, next models.Member) bool {
	if old.Rank != next.Rank {
		return false
	}
	var norm models.Member
	norm.SetCapabilityNames(old.CapabilityNames())
	return norm.Capabilities == next.Capabilities
}
