package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/moderation"
)

type sentMessage struct {
	URL     string
	Message string
}

func captureSends(svc *NotificationService) func() []sentMessage {
	var mu sync.Mutex
	var sent []sentMessage
	svc.send = func(url, message string) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, sentMessage{URL: url, Message: message})
		return nil
	}
	return func() []sentMessage {
		svc.Wait()
		mu.Lock()
		defer mu.Unlock()
		return append([]sentMessage(nil), sent...)
	}
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "discord://tok-en_1@12345", normalizeURL("discord", "https://discord.com/api/webhooks/12345/tok-en_1"))
	assert.Equal(t, "discord://tok@1", normalizeURL("discord", "https://discordapp.com/api/webhooks/1/tok"))
	assert.Equal(t, "slack://a/b/c", normalizeURL("slack", "slack://a/b/c"))
}

func TestNotificationService_NotifyStoresAndFansOut(t *testing.T) {
	db := openTestDB(t)
	svc := NewNotificationService(db)
	sent := captureSends(svc)
	ctx := context.Background()

	require.NoError(t, svc.CreateProvider(ctx, &models.NotificationProvider{
		TenantID: "T", Name: "mods", Type: "discord", URL: "https://discord.com/api/webhooks/1/abc", Enabled: true,
		NotifyWarnings: true, NotifyAutoMod: true,
	}))
	require.NoError(t, svc.CreateProvider(ctx, &models.NotificationProvider{
		TenantID: "T", Name: "automod-only", Type: "generic", URL: "generic://example.com/hook", Enabled: true,
		NotifyWarnings: false, NotifyAutoMod: true,
	}))
	require.NoError(t, svc.CreateProvider(ctx, &models.NotificationProvider{
		TenantID: "T", Name: "disabled", Type: "generic", URL: "generic://example.com/off", Enabled: false,
		NotifyWarnings: true, NotifyAutoMod: true,
	}))
	require.NoError(t, svc.CreateProvider(ctx, &models.NotificationProvider{
		TenantID: "other", Name: "elsewhere", Type: "generic", URL: "generic://example.com/other", Enabled: true,
		NotifyWarnings: true, NotifyAutoMod: true,
	}))

	require.NoError(t, svc.Notify(ctx, moderation.WarningEvent{
		WarningID: 1, TenantID: "T", ActorID: "U", ModeratorID: "mod", Reason: "spam", NewCount: 1,
	}))
	msgs := sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "discord://abc@1", msgs[0].URL)
	assert.Contains(t, msgs[0].Message, "mod warned U: spam")

	require.NoError(t, svc.Notify(ctx, moderation.WarningEvent{
		WarningID: 2, TenantID: "T", ActorID: "U", ModeratorID: "mod", NewCount: 2,
		Triggered: &moderation.CascadeOutcome{
			Rule:   models.AutoModRule{Threshold: 2, Action: models.RuleActionMute},
			Result: moderation.ExecutionResult{Success: true},
		},
	}))
	assert.Len(t, sent(), 3)

	stored, err := svc.List(ctx, "T", false)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	types := []models.NotificationType{stored[0].Type, stored[1].Type}
	assert.ElementsMatch(t, []models.NotificationType{models.NotificationTypeWarning, models.NotificationTypeAutoMod}, types)
}

func TestNotificationService_FailedCascadeIsAnError(t *testing.T) {
	svc := NewNotificationService(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, svc.Notify(ctx, moderation.WarningEvent{
		TenantID: "T", ActorID: "U", ModeratorID: "mod", NewCount: 3,
		Triggered: &moderation.CascadeOutcome{
			Rule:   models.AutoModRule{Threshold: 3, Action: models.RuleActionBan},
			Result: moderation.ExecutionResult{Message: "missing access"},
		},
	}))

	stored, err := svc.List(ctx, "T", false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.NotificationTypeError, stored[0].Type)
	assert.Contains(t, stored[0].Message, "failed: missing access")
}

func TestNotificationService_MarkAsRead(t *testing.T) {
	svc := NewNotificationService(openTestDB(t))
	ctx := context.Background()
	for i := int64(1); i <= 2; i++ {
		require.NoError(t, svc.Notify(ctx, moderation.WarningEvent{TenantID: "T", ActorID: "U", ModeratorID: "m", NewCount: i}))
	}
	all, err := svc.List(ctx, "T", true)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, svc.MarkAsRead(ctx, "T", all[0].ID))
	unread, err := svc.List(ctx, "T", true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	// another tenant cannot touch these rows
	require.NoError(t, svc.MarkAsRead(ctx, "other", unread[0].ID))
	unread, _ = svc.List(ctx, "T", true)
	assert.Len(t, unread, 1)

	require.NoError(t, svc.MarkAllAsRead(ctx, "T"))
	unread, _ = svc.List(ctx, "T", true)
	assert.Empty(t, unread)
}

func TestNotificationService_ProviderCRUD(t *testing.T) {
	svc := NewNotificationService(openTestDB(t))
	ctx := context.Background()

	assert.ErrorIs(t, svc.CreateProvider(ctx, &models.NotificationProvider{TenantID: "T"}), ErrInvalidProvider)

	p := &models.NotificationProvider{TenantID: "T", Name: "ops", Type: "generic", URL: "generic://x", Enabled: true, NotifyWarnings: false, NotifyAutoMod: true}
	require.NoError(t, svc.CreateProvider(ctx, p))
	assert.NotEmpty(t, p.ID)

	list, err := svc.ListProviders(ctx, "T")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].NotifyWarnings)
	assert.True(t, list[0].NotifyAutoMod)

	p.Name = "ops-renamed"
	require.NoError(t, svc.UpdateProvider(ctx, p))
	list, _ = svc.ListProviders(ctx, "T")
	assert.Equal(t, "ops-renamed", list[0].Name)

	assert.ErrorIs(t, svc.UpdateProvider(ctx, &models.NotificationProvider{ID: "missing", TenantID: "T"}), ErrProviderNotFound)
	assert.ErrorIs(t, svc.DeleteProvider(ctx, "other", p.ID), ErrProviderNotFound)
	require.NoError(t, svc.DeleteProvider(ctx, "T", p.ID))
}

func TestNotificationService_TestProviderRejectsPrivateWebhook(t *testing.T) {
	svc := NewNotificationService(openTestDB(t))
	sent := captureSends(svc)

	err := svc.TestProvider(models.NotificationProvider{Type: "generic", URL: "http://10.0.0.1/hook"})
	assert.Error(t, err)
	assert.Empty(t, sent())

	require.NoError(t, svc.TestProvider(models.NotificationProvider{Type: "generic", URL: "http://localhost:9000/hook"}))
	assert.Len(t, sent(), 1)
}
