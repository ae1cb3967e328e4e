package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/models"
)

// Platform is the chat platform adapter. Implementations report failures as
// *Error with CodeNotFound, CodeAdapterForbidden or CodeTransient; anything
// else is treated as transient.
type Platform interface {
	Mute(ctx context.Context, tenantID, userID string, d time.Duration, reason string) error
	Unmute(ctx context.Context, tenantID, userID, reason string) error
	Kick(ctx context.Context, tenantID, userID, reason string) error
	Ban(ctx context.Context, tenantID, userID, reason string, retention time.Duration) error
	Unban(ctx context.Context, tenantID, userID, reason string) error
	Purge(ctx context.Context, tenantID, channelID string, amount int) (int, error)
	LockChannel(ctx context.Context, tenantID, channelID, reason string) error
	UnlockChannel(ctx context.Context, tenantID, channelID, reason string) error
	AssignRole(ctx context.Context, tenantID, userID, role string) error
}

// ExecutionResult is what every handler returns; handlers never panic or
// return bare errors.
type ExecutionResult struct {
	Success     bool
	Message     string
	SideEffects []string
	Err         *Error

	// Warning is set for warn commands.
	Warning *WarningOutcome
	// Warnings is set for view_warnings.
	Warnings []models.Warning
}

type warningBook interface {
	RecordWarning(ctx context.Context, actorID, tenantID, moderatorID, reason string) (WarningOutcome, error)
	ListWarnings(ctx context.Context, tenantID, actorID string) ([]models.Warning, error)
	RemoveWarning(ctx context.Context, tenantID, actorID string, id uint) error
	ClearWarnings(ctx context.Context, tenantID, actorID string) (int64, error)
}

type handler func(ctx context.Context, cmd Command) ExecutionResult

// Executor dispatches authorized commands to the platform adapter.
type Executor struct {
	platform  Platform
	warnings  warningBook
	directory Directory
	strict    bool
	handlers  map[Kind]handler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithStrict makes an unknown command kind panic instead of returning an
// internal error. Enable it in development builds.
func WithStrict(strict bool) ExecutorOption {
	return func(e *Executor) { e.strict = strict }
}

// WithDirectory makes the warning kinds require a target known to dir.
// Unknown references fail with CodeNotFound instead of opening a ledger
// for free text.
func WithDirectory(dir Directory) ExecutorOption {
	return func(e *Executor) { e.directory = dir }
}

// NewExecutor builds the dispatch table around p. Warning kinds stay
// unavailable until a Cascade is attached with NewCascade.
func NewExecutor(p Platform, opts ...ExecutorOption) *Executor {
	e := &Executor{platform: p}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = map[Kind]handler{
		KindWarn:          e.warn,
		KindMute:          e.mute,
		KindUnmute:        e.unmute,
		KindKick:          e.kick,
		KindBan:           e.ban,
		KindUnban:         e.unban,
		KindPurge:         e.purge,
		KindLock:          e.lock,
		KindUnlock:        e.unlock,
		KindAssignRole:    e.assignRole,
		KindViewWarnings:  e.viewWarnings,
		KindRemoveWarning: e.removeWarning,
		KindClearWarnings: e.clearWarnings,
	}
	return e
}

// Execute runs cmd synchronously. It performs no retries.
func (e *Executor) Execute(ctx context.Context, cmd Command) (res ExecutionResult) {
	h, ok := e.handlers[cmd.Kind]
	if !ok || !paramsMatch(cmd) {
		if e.strict {
			panic(fmt.Sprintf("moderation: executor reached with unhandled command %q (%T)", cmd.Kind, cmd.Params))
		}
		logger.Log().WithField("kind", cmd.Kind).Error("executor reached with unhandled command")
		return failed(&Error{Code: CodeInternal, Message: "something went wrong handling that command"})
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ForTenant(cmd.TenantID, cmd.Target).WithField("kind", cmd.Kind).Errorf("PANIC in command handler: %v", r)
			res = failed(&Error{Code: CodeInternal, Message: "something went wrong handling that command"})
		}
		code := "ok"
		if res.Err != nil {
			code = string(res.Err.Code)
		}
		metrics.ObserveCommand(string(cmd.Kind), code)
	}()

	return h(ctx, cmd)
}

func paramsMatch(cmd Command) bool {
	return cmd.Params != nil && cmd.Params.kind() == cmd.Kind
}

func failed(err *Error) ExecutionResult {
	return ExecutionResult{Success: false, Message: err.Message, Err: err}
}

func succeeded(msg string, effects ...string) ExecutionResult {
	return ExecutionResult{Success: true, Message: msg, SideEffects: effects}
}

// adapterError folds whatever the platform returned into the three
// execution-time codes.
func adapterError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case CodeNotFound, CodeAdapterForbidden, CodeTransient:
			return e
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Code: CodeTransient, Message: "the platform request timed out", Err: err}
	}
	return &Error{Code: CodeTransient, Message: "the platform request failed", Err: err}
}

func (e *Executor) mute(ctx context.Context, cmd Command) ExecutionResult {
	p := cmd.Params.(MuteParams)
	if err := e.platform.Mute(ctx, cmd.TenantID, cmd.Target, p.Duration.Std(), p.Reason); err != nil {
		return failed(adapterError(err))
	}
	return succeeded(fmt.Sprintf("Muted %s for %s", cmd.Target, p.Duration),
		fmt.Sprintf("mute:%s:%dms", cmd.Target, p.Duration.Millis))
}

func (e *Executor) unmute(ctx context.Context, cmd Command) ExecutionResult {
	p := cmd.Params.(UnmuteParams)
	if err := e.platform.Unmute(ctx, cmd.TenantID, cmd.Target, p.Reason); err != nil {
		return failed(adapterError(err))
	}
	return succeeded(fmt.Sprintf("Unmuted %s", cmd.Target), "unmute:"+cmd.Target)
}

func (e *Executor) kick(ctx context.Context, cmd Command) ExecutionResult {
	p := cmd.Params.(KickParams)
	if err := e.platform.Kick(ctx, cmd.TenantID, cmd.Target, p.Reason); err != nil {
		return failed(adapterError(err))
	}
	return succeeded(fmt.Sprintf("Kicked %s", cmd.Target), "kick:"+cmd.Target)
}

func (e *Executor) ban(ctx context.Context, cmd Command) ExecutionResult {
	p := cmd.Params.(BanParams)
	if err := e.platform.Ban(ctx, cmd.TenantID, cmd.Target, p.Reason, p.Retention.Std()); err != nil {
		return failed(adapterError(err))
	}
	return succeeded(fmt.Sprintf("Banned %s", cmd.Target), "ban:"+cmd.Target)
}

func (e *Executor) unban(ctx context.Context, cmd Command) ExecutionResult {
	p := cmd.Params.(UnbanParams)
	if err := e.platform.Unban(ctx, cmd.TenantID, cmd.Target, p.Reason); err != nil {
		return failed(adapterError(err))
	}
	return succeeded(fmt.Sprintf("Unbanned %s", cmd.Target), "unban:"+cmd.Target)
}

func (e *Executor) purge(ctx context.Context, cmd Command) ExecutionResult {
	p := cmd.Params.(PurgeParams)
	deleted, err := e.platform.Purge(ctx, cmd.TenantID, p.Channel, p.Amount)
	if err != nil {
		return failed(adapterError(err))
	}
	return succeeded(fmt.Sprintf("Deleted %d messages", deleted), fmt.Sprintf("purge:%s:%d", p.Channel, deleted))
}

func (e *Executor) lock(ctx context.Context, cmd Command) ExecutionResult {
	p := cmd.Params.(LockParams)
	if err := e.platform.LockChannel(ctx, cmd.TenantID, p.Channel, p.Reason); err != nil {
		return failed(adapterError(err))
	}
	return succeeded("Channel locked", "lock:"+p.Channel)
}

func (e *Executor) unlock(ctx context.Context, cmd Command) ExecutionResult {
	p := cmd.Params.(UnlockParams)
	if err := e.platform.UnlockChannel(ctx, cmd.TenantID, p.Channel, p.Reason); err != nil {
		return failed(adapterError(err))
	}
	return succeeded("Channel unlocked", "unlock:"+p.Channel)
}

func (e *Executor) assignRole(ctx context.Context, cmd Command) ExecutionResult {
	p := cmd.Params.(AssignRoleParams)
	if err := e.platform.AssignRole(ctx, cmd.TenantID, cmd.Target, p.Role); err != nil {
		return failed(adapterError(err))
	}
	return succeeded(fmt.Sprintf("Gave %s the %s role", cmd.Target, p.Role), "assign_role:"+cmd.Target+":"+p.Role)
}

func (e *Executor) warn(ctx context.Context, cmd Command) ExecutionResult {
	if e.warnings == nil {
		return failed(&Error{Code: CodeInternal, Message: "warnings are not available"})
	}
	target, rerr := e.member(ctx, cmd)
	if rerr != nil {
		return failed(rerr)
	}
	cmd.Target = target
	p := cmd.Params.(WarnParams)
	outcome, err := e.warnings.RecordWarning(ctx, cmd.Target, cmd.TenantID, cmd.IssuedBy, p.Reason)
	if err != nil {
		return failed(storeError(err))
	}
	res := succeeded(fmt.Sprintf("Warned %s (%d total)", cmd.Target, outcome.NewCount),
		fmt.Sprintf("warning:%d", outcome.WarningID))
	if outcome.Triggered != nil {
		res.SideEffects = append(res.SideEffects, outcome.Triggered.Result.SideEffects...)
		res.Message += "; " + outcome.Triggered.Summary()
	}
	if outcome.RuleCheckErr != nil {
		res.Message += "; " + outcome.RuleCheckErr.Message
	}
	res.Warning = &outcome
	return res
}

func (e *Executor) viewWarnings(ctx context.Context, cmd Command) ExecutionResult {
	if e.warnings == nil {
		return failed(&Error{Code: CodeInternal, Message: "warnings are not available"})
	}
	target, rerr := e.member(ctx, cmd)
	if rerr != nil {
		return failed(rerr)
	}
	cmd.Target = target
	list, err := e.warnings.ListWarnings(ctx, cmd.TenantID, cmd.Target)
	if err != nil {
		return failed(storeError(err))
	}
	res := succeeded(fmt.Sprintf("%s has %d warning(s)", cmd.Target, len(list)))
	res.Warnings = list
	return res
}

func (e *Executor) removeWarning(ctx context.Context, cmd Command) ExecutionResult {
	if e.warnings == nil {
		return failed(&Error{Code: CodeInternal, Message: "warnings are not available"})
	}
	target, rerr := e.member(ctx, cmd)
	if rerr != nil {
		return failed(rerr)
	}
	cmd.Target = target
	p := cmd.Params.(RemoveWarningParams)
	if err := e.warnings.RemoveWarning(ctx, cmd.TenantID, cmd.Target, p.WarningID); err != nil {
		return failed(storeError(err))
	}
	return succeeded(fmt.Sprintf("Removed warning #%d", p.WarningID), fmt.Sprintf("remove_warning:%d", p.WarningID))
}

func (e *Executor) clearWarnings(ctx context.Context, cmd Command) ExecutionResult {
	if e.warnings == nil {
		return failed(&Error{Code: CodeInternal, Message: "warnings are not available"})
	}
	target, rerr := e.member(ctx, cmd)
	if rerr != nil {
		return failed(rerr)
	}
	cmd.Target = target
	n, err := e.warnings.ClearWarnings(ctx, cmd.TenantID, cmd.Target)
	if err != nil {
		return failed(storeError(err))
	}
	return succeeded(fmt.Sprintf("Cleared %d warning(s) for %s", n, cmd.Target), "clear_warnings:"+cmd.Target)
}

// member resolves the target of a warning kind to a member id. Without a
// directory the target is taken as given.
func (e *Executor) member(ctx context.Context, cmd Command) (string, *Error) {
	if e.directory == nil {
		return cmd.Target, nil
	}
	a, err := e.directory.Resolve(ctx, cmd.TenantID, cmd.Target)
	switch {
	case err == nil:
		return a.ID, nil
	case errors.Is(err, ErrActorNotFound):
		return "", &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s is not a member of this community", cmd.Target)}
	case errors.Is(err, ErrAmbiguousRef):
		return "", invalid("target %q matches more than one member; use their ID", cmd.Target)
	default:
		return "", &Error{Code: CodeTransient, Message: "member directory is unavailable", Err: err}
	}
}

func storeError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeTransient, Message: "could not reach the warning store", Err: err}
}
