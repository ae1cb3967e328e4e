package platform

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/util"
)

// DryRun logs every action and reports success. It is used when no bridge
// URL is configured.
type DryRun struct{}

func (DryRun) log(tenantID, subject, action string) *logrus.Entry {
	return logger.Log().WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"subject":   subject,
		"action":    action,
		"dry_run":   true,
	})
}

func (d DryRun) Mute(_ context.Context, tenantID, userID string, dur time.Duration, reason string) error {
	d.log(tenantID, userID, "mute").WithField("duration_ms", dur.Milliseconds()).Info(util.SanitizeForLog(reason))
	return nil
}

func (d DryRun) Unmute(_ context.Context, tenantID, userID, reason string) error {
	d.log(tenantID, userID, "unmute").Info(util.SanitizeForLog(reason))
	return nil
}

func (d DryRun) Kick(_ context.Context, tenantID, userID, reason string) error {
	d.log(tenantID, userID, "kick").Info(util.SanitizeForLog(reason))
	return nil
}

func (d DryRun) Ban(_ context.Context, tenantID, userID, reason string, retention time.Duration) error {
	d.log(tenantID, userID, "ban").WithField("retention_ms", retention.Milliseconds()).Info(util.SanitizeForLog(reason))
	return nil
}

func (d DryRun) Unban(_ context.Context, tenantID, userID, reason string) error {
	d.log(tenantID, userID, "unban").Info(util.SanitizeForLog(reason))
	return nil
}

func (d DryRun) Purge(_ context.Context, tenantID, channelID string, amount int) (int, error) {
	d.log(tenantID, channelID, "purge").WithField("amount", amount).Info("purge")
	return amount, nil
}

func (d DryRun) LockChannel(_ context.Context, tenantID, channelID, reason string) error {
	d.log(tenantID, channelID, "lock").Info(util.SanitizeForLog(reason))
	return nil
}

func (d DryRun) UnlockChannel(_ context.Context, tenantID, channelID, reason string) error {
	d.log(tenantID, channelID, "unlock").Info(util.SanitizeForLog(reason))
	return nil
}

func (d DryRun) AssignRole(_ context.Context, tenantID, userID, role string) error {
	d.log(tenantID, userID, "assign_role").Info(util.SanitizeForLog(role))
	return nil
}
