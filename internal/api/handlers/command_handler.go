package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/util"
)

// CommandHandler runs moderation commands through authorization and the
// executor. The warning routes are commands too, so the same capability
// and hierarchy rules apply to them.
type CommandHandler struct {
	directory moderation.Directory
	authz     *moderation.Authorizer
	exec      *moderation.Executor
}

func NewCommandHandler(dir moderation.Directory, exec *moderation.Executor) *CommandHandler {
	return &CommandHandler{
		directory: dir,
		authz:     moderation.NewAuthorizer(dir),
		exec:      exec,
	}
}

// Execute handles POST /commands.
func (h *CommandHandler) Execute(c *gin.Context) {
	var req moderation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortModeration(c, &moderation.Error{Code: moderation.CodeInvalidCommand, Message: "request body must be {kind, target, params}"})
		return
	}
	res, ok := h.run(c, req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resultBody(res))
}

// ListWarnings handles GET /warnings/:actor.
func (h *CommandHandler) ListWarnings(c *gin.Context) {
	res, ok := h.run(c, moderation.Request{Kind: string(moderation.KindViewWarnings), Target: c.Param("actor")})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"actor":    c.Param("actor"),
		"count":    len(res.Warnings),
		"warnings": res.Warnings,
	})
}

// RemoveWarning handles DELETE /warnings/:actor/:id.
func (h *CommandHandler) RemoveWarning(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		abortModeration(c, &moderation.Error{Code: moderation.CodeInvalidCommand, Message: "warning id must be a positive integer"})
		return
	}
	res, ok := h.run(c, moderation.Request{
		Kind:   string(moderation.KindRemoveWarning),
		Target: c.Param("actor"),
		Params: map[string]interface{}{"warning_id": int64(id)},
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resultBody(res))
}

// ClearWarnings handles DELETE /warnings/:actor.
func (h *CommandHandler) ClearWarnings(c *gin.Context) {
	res, ok := h.run(c, moderation.Request{Kind: string(moderation.KindClearWarnings), Target: c.Param("actor")})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resultBody(res))
}

// run resolves the caller, authorizes req and executes it. It writes the
// error response itself and reports false on any failure.
func (h *CommandHandler) run(c *gin.Context, req moderation.Request) (moderation.ExecutionResult, bool) {
	actor := caller(c, h.directory)
	if actor == nil {
		metrics.ObserveDecision(string(moderation.CodePermissionDenied))
		return moderation.ExecutionResult{}, false
	}

	log := middleware.GetRequestLogger(c).WithField("kind", util.SanitizeForLog(req.Kind))
	decision, err := h.authz.Authorize(c.Request.Context(), actor, req)
	if err != nil {
		metrics.ObserveDecision(string(moderation.CodeOf(err)))
		log.WithField("code", moderation.CodeOf(err)).Info("command denied")
		abortModeration(c, err)
		return moderation.ExecutionResult{}, false
	}
	metrics.ObserveDecision("allowed")

	res := h.exec.Execute(c.Request.Context(), decision.Command)
	if res.Err != nil {
		log.WithField("target", decision.Command.Target).WithField("code", res.Err.Code).Warn("command failed")
		abortModeration(c, res.Err)
		return res, false
	}
	log.WithField("target", decision.Command.Target).Info("command executed")
	return res, true
}

func resultBody(res moderation.ExecutionResult) gin.H {
	body := gin.H{
		"success":      res.Success,
		"message":      res.Message,
		"side_effects": res.SideEffects,
	}
	if w := res.Warning; w != nil {
		warning := gin.H{"id": w.WarningID, "count": w.NewCount}
		if t := w.Triggered; t != nil {
			triggered := gin.H{
				"threshold": t.Rule.Threshold,
				"action":    t.Rule.Action,
				"success":   t.Result.Success,
				"summary":   t.Summary(),
			}
			if t.Result.Err != nil {
				triggered["code"] = t.Result.Err.Code
			}
			warning["automod"] = triggered
		}
		if e := w.RuleCheckErr; e != nil {
			warning["automod_error"] = gin.H{"error": e.Message, "code": e.Code}
		}
		body["warning"] = warning
	}
	return body
}
