package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/moderation"
)

// statusFor maps a moderation error code to an HTTP status.
func statusFor(code moderation.Code) int {
	switch code {
	case moderation.CodeInvalidCommand:
		return http.StatusBadRequest
	case moderation.CodePermissionDenied, moderation.CodeInsufficientRank,
		moderation.CodeOwnerProtected, moderation.CodeSelfActionForbidden:
		return http.StatusForbidden
	case moderation.CodeNotFound:
		return http.StatusNotFound
	case moderation.CodeAdapterForbidden:
		return http.StatusFailedDependency
	case moderation.CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortModeration writes err as {"error", "code", "hint"?, "required"?}.
func abortModeration(c *gin.Context, err error) {
	var e *moderation.Error
	if !errors.As(err, &e) {
		middleware.GetRequestLogger(c).WithError(err).Error("unexpected error")
		e = &moderation.Error{Code: moderation.CodeInternal, Message: "internal server error"}
	}
	body := gin.H{"error": e.Message, "code": e.Code}
	if e.Message == "" {
		body["error"] = string(e.Code)
	}
	if hint := e.Hint(); hint != "" {
		body["hint"] = hint
	}
	if len(e.Required) > 0 {
		body["required"] = e.Required
	}
	if e.Retryable() {
		c.Header("Retry-After", "5")
	}
	c.AbortWithStatusJSON(statusFor(e.Code), body)
}

// caller resolves the authenticated actor in its tenant. It writes the
// response and returns nil when the caller cannot be resolved; a directory
// outage fails closed.
func caller(c *gin.Context, dir moderation.Directory) *moderation.Actor {
	actorID := c.GetString(middleware.ActorIDKey)
	tenantID := c.GetString(middleware.TenantIDKey)

	actor, err := dir.Resolve(c.Request.Context(), tenantID, actorID)
	switch {
	case err == nil:
		// Resolve may fall back to a display name; the caller must match by id.
		if actor.ID != actorID {
			abortModeration(c, &moderation.Error{Code: moderation.CodePermissionDenied, Message: "you are not a member of this community"})
			return nil
		}
		return actor
	case errors.Is(err, moderation.ErrActorNotFound), errors.Is(err, moderation.ErrAmbiguousRef):
		abortModeration(c, &moderation.Error{Code: moderation.CodePermissionDenied, Message: "you are not a member of this community"})
	default:
		middleware.GetRequestLogger(c).WithError(err).Error("failed to resolve caller")
		abortModeration(c, &moderation.Error{Code: moderation.CodeTransient, Message: "member directory unavailable", Err: err})
	}
	return nil
}

func isAdmin(a *moderation.Actor) bool {
	return a.IsOwner || a.Has(moderation.CapAdministrator)
}

// isModerator reports whether a holds any capability the moderation matrix
// grants commands for.
func isModerator(a *moderation.Actor) bool {
	if isAdmin(a) {
		return true
	}
	for _, c := range moderation.KnownCapabilities {
		if a.Has(c) {
			return true
		}
	}
	return false
}

func requireAdmin(c *gin.Context, a *moderation.Actor) bool {
	if isAdmin(a) {
		return true
	}
	abortModeration(c, &moderation.Error{
		Code:     moderation.CodePermissionDenied,
		Message:  "this requires the Administrator capability",
		Required: []moderation.Capability{moderation.CapAdministrator},
	})
	return false
}

func requireModerator(c *gin.Context, a *moderation.Actor) bool {
	if isModerator(a) {
		return true
	}
	abortModeration(c, &moderation.Error{Code: moderation.CodePermissionDenied, Message: "this requires a moderation capability"})
	return false
}
