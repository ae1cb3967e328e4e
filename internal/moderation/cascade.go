package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/util"
)

const autoReasonPrefix = "[Auto-mod]"

// Ledger persists warnings. Append must insert and count in one transaction
// and return the number of rows for (tenant, actor) after the insert.
type Ledger interface {
	Append(ctx context.Context, w *models.Warning) (int64, error)
	List(ctx context.Context, tenantID, actorID string) ([]models.Warning, error)
	// Remove reports false when no warning with id belongs to (tenant, actor).
	Remove(ctx context.Context, tenantID, actorID string, id uint) (bool, error)
	Clear(ctx context.Context, tenantID, actorID string) (int64, error)
}

// RuleStore looks up the rule whose threshold equals count exactly. It
// returns nil, nil when no rule matches.
type RuleStore interface {
	Match(ctx context.Context, tenantID string, count int64) (*models.AutoModRule, error)
}

// Notifier receives an event after every recorded warning.
type Notifier interface {
	Notify(ctx context.Context, ev WarningEvent) error
}

// WarningEvent describes a recorded warning for the notification sink.
type WarningEvent struct {
	WarningID   uint
	TenantID    string
	ActorID     string
	ModeratorID string
	Reason      string
	NewCount    int64
	Triggered   *CascadeOutcome
}

// WarningOutcome is returned by RecordWarning.
type WarningOutcome struct {
	WarningID uint
	NewCount  int64
	// Triggered is set when a rule matched NewCount, whether or not the
	// synthesized action succeeded.
	Triggered *CascadeOutcome
	// RuleCheckErr is set when the rules could not be read, so no threshold
	// was evaluated for NewCount.
	RuleCheckErr *Error
}

// CascadeOutcome is the synthesized command and how it went.
type CascadeOutcome struct {
	Rule    models.AutoModRule
	Command Command
	Result  ExecutionResult
}

// Summary is a one line description for moderators.
func (o *CascadeOutcome) Summary() string {
	if o.Result.Success {
		return fmt.Sprintf("auto-mod %s applied at %d warnings", o.Rule.Action, o.Rule.Threshold)
	}
	return fmt.Sprintf("auto-mod %s at %d warnings failed: %s", o.Rule.Action, o.Rule.Threshold, o.Result.Message)
}

// Cascade records warnings and escalates them into automatic actions.
type Cascade struct {
	ledger   Ledger
	rules    RuleStore
	exec     *Executor
	notifier Notifier
	locks    *keyedMutex
}

// NewCascade builds the engine and attaches it to exec as the handler for
// the warning command kinds. notifier may be nil.
func NewCascade(ledger Ledger, rules RuleStore, exec *Executor, notifier Notifier) *Cascade {
	c := &Cascade{
		ledger:   ledger,
		rules:    rules,
		exec:     exec,
		notifier: notifier,
		locks:    newKeyedMutex(),
	}
	exec.warnings = c
	return c
}

// RecordWarning stores a warning, recounts, and fires the rule whose
// threshold equals the new count. Rules fire on exact matches only: with
// rules at 3 and 7, reaching 5 fires nothing. A failed automatic action is
// reported in the outcome and logged; the warning stays recorded.
func (c *Cascade) RecordWarning(ctx context.Context, actorID, tenantID, moderatorID, reason string) (WarningOutcome, error) {
	w := &models.Warning{ActorID: actorID, TenantID: tenantID, ModeratorID: moderatorID}
	if r := strings.TrimSpace(reason); r != "" {
		w.Reason = &r
	}

	count, rule, lookupErr, err := c.appendAndMatch(ctx, w)
	if err != nil {
		return WarningOutcome{}, err
	}

	log := logger.ForTenant(tenantID, actorID).WithField("warning_id", w.ID)
	log.WithField("count", count).WithField("reason", util.SanitizeForLog(reason)).Info("warning recorded")

	outcome := WarningOutcome{WarningID: w.ID, NewCount: count}
	if lookupErr != nil {
		// The warning is durable; only the rule lookup failed.
		log.WithError(lookupErr).Error("auto-mod rule lookup failed")
		outcome.RuleCheckErr = &Error{
			Code:    CodeTransient,
			Message: fmt.Sprintf("auto-mod rules could not be checked at %d warnings", count),
			Err:     lookupErr,
		}
	}
	if rule != nil {
		outcome.Triggered = c.fire(ctx, *rule, actorID, count)
		if !outcome.Triggered.Result.Success {
			log.WithField("rule_threshold", rule.Threshold).
				WithField("code", outcome.Triggered.Result.Err.Code).
				Warnf("auto-mod %s failed: %s", rule.Action, outcome.Triggered.Result.Message)
		}
	}

	if c.notifier != nil {
		ev := WarningEvent{
			WarningID:   w.ID,
			TenantID:    tenantID,
			ActorID:     actorID,
			ModeratorID: moderatorID,
			Reason:      reason,
			NewCount:    count,
			Triggered:   outcome.Triggered,
		}
		if err := c.notifier.Notify(ctx, ev); err != nil {
			log.WithError(err).Warn("failed to deliver warning notification")
		}
	}
	return outcome, nil
}

// appendAndMatch serializes insert, count and rule lookup per (tenant, actor)
// so two concurrent warnings never observe the same count.
// A failed lookup is returned separately from a failed append.
func (c *Cascade) appendAndMatch(ctx context.Context, w *models.Warning) (count int64, rule *models.AutoModRule, lookupErr, err error) {
	unlock := c.locks.Lock(w.TenantID + "\x00" + w.ActorID)
	defer unlock()

	count, err = c.ledger.Append(ctx, w)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("record warning: %w", err)
	}
	rule, lookupErr = c.rules.Match(ctx, w.TenantID, count)
	if lookupErr != nil {
		return count, nil, lookupErr, nil
	}
	return count, rule, nil, nil
}

func (c *Cascade) fire(ctx context.Context, rule models.AutoModRule, actorID string, count int64) *CascadeOutcome {
	out := &CascadeOutcome{Rule: rule}
	cmd, err := commandForRule(rule, actorID, count)
	if err != nil {
		out.Result = failed(&Error{Code: CodeInternal, Message: "auto-mod rule is invalid", Err: err})
		metrics.ObserveAutoMod(string(rule.Action), false)
		return out
	}
	out.Command = cmd
	// System authority: the triggering moderator's rank plays no part.
	out.Result = c.exec.Execute(ctx, cmd)
	metrics.ObserveAutoMod(string(rule.Action), out.Result.Success)
	return out
}

func commandForRule(rule models.AutoModRule, actorID string, count int64) (Command, error) {
	reason := strings.TrimSpace(rule.Reason)
	if reason == "" {
		reason = fmt.Sprintf("reached %d warnings", count)
	}
	reason = autoReasonPrefix + " " + reason

	cmd := Command{
		TenantID: rule.TenantID,
		IssuedBy: SystemActorID,
		Target:   actorID,
	}
	switch rule.Action {
	case models.RuleActionMute:
		d, err := ParseDuration(rule.Duration)
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = KindMute
		cmd.Params = MuteParams{Duration: d, Reason: reason}
	case models.RuleActionKick:
		cmd.Kind = KindKick
		cmd.Params = KickParams{Reason: reason}
	case models.RuleActionBan:
		d, err := ParseDuration(rule.Duration)
		if err != nil {
			return Command{}, err
		}
		cmd.Kind = KindBan
		cmd.Params = BanParams{Reason: reason, Retention: d}
	default:
		return Command{}, fmt.Errorf("unsupported rule action %q", rule.Action)
	}
	return cmd, nil
}

// ListWarnings returns the member's warnings, most recent first.
func (c *Cascade) ListWarnings(ctx context.Context, tenantID, actorID string) ([]models.Warning, error) {
	return c.ledger.List(ctx, tenantID, actorID)
}

// RemoveWarning hard deletes one warning. It never reverses earlier
// automatic actions.
func (c *Cascade) RemoveWarning(ctx context.Context, tenantID, actorID string, id uint) error {
	ok, err := c.ledger.Remove(ctx, tenantID, actorID, id)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Code: CodeNotFound, Message: fmt.Sprintf("warning #%d was not found for %s", id, actorID)}
	}
	logger.ForTenant(tenantID, actorID).WithField("warning_id", id).Info("warning removed")
	return nil
}

// ClearWarnings hard deletes every warning of the member.
func (c *Cascade) ClearWarnings(ctx context.Context, tenantID, actorID string) (int64, error) {
	n, err := c.ledger.Clear(ctx, tenantID, actorID)
	if err != nil {
		return 0, err
	}
	logger.ForTenant(tenantID, actorID).WithField("removed", n).Info("warnings cleared")
	return n, nil
}
