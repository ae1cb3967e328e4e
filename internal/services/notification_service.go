package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/containrrr/shoutrrr"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/util"
)

var (
	ErrProviderNotFound = errors.New("notification provider not found")
	ErrInvalidProvider  = errors.New("notification provider needs a name, type and url")
)

// NotificationService is the moderation notification sink. Every warning
// is stored as an internal notification and fanned out to the tenant's
// enabled shoutrrr providers.
type NotificationService struct {
	DB *gorm.DB

	send    func(url, message string) error
	pending sync.WaitGroup
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		DB: db,
		send: func(url, message string) error {
			return shoutrrr.Send(url, message)
		},
	}
}

var discordWebhookRegex = regexp.MustCompile(`^https://discord(?:app)?\.com/api/webhooks/(\d+)/([a-zA-Z0-9_-]+)`)

func normalizeURL(serviceType, rawURL string) string {
	if serviceType == "discord" {
		matches := discordWebhookRegex.FindStringSubmatch(rawURL)
		if len(matches) == 3 {
			return fmt.Sprintf("discord://%s@%s", matches[2], matches[1])
		}
	}
	return rawURL
}

// Notify implements moderation.Notifier. External delivery happens in the
// background; only the stored notification is written synchronously.
func (s *NotificationService) Notify(ctx context.Context, ev moderation.WarningEvent) error {
	n := eventNotification(ev)
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	automod := ev.Triggered != nil
	s.SendExternal(ctx, ev.TenantID, automod, n.Title, n.Message)
	return nil
}

func eventNotification(ev moderation.WarningEvent) *models.Notification {
	n := &models.Notification{
		TenantID: ev.TenantID,
		ActorID:  ev.ActorID,
		Type:     models.NotificationTypeWarning,
		Title:    fmt.Sprintf("Warning #%d for %s", ev.NewCount, ev.ActorID),
	}
	reason := util.Truncate(strings.TrimSpace(ev.Reason), 200)
	if reason == "" {
		reason = "no reason given"
	}
	n.Message = fmt.Sprintf("%s warned %s: %s", ev.ModeratorID, ev.ActorID, reason)

	if ev.Triggered != nil {
		n.Type = models.NotificationTypeAutoMod
		if !ev.Triggered.Result.Success {
			n.Type = models.NotificationTypeError
		}
		n.Title = fmt.Sprintf("Auto-mod %s for %s", ev.Triggered.Rule.Action, ev.ActorID)
		n.Message += "\n" + ev.Triggered.Summary()
	}
	return n
}

// SendExternal delivers a message to the tenant's enabled providers that
// opted into the event class.
func (s *NotificationService) SendExternal(ctx context.Context, tenantID string, automod bool, title, message string) {
	var providers []models.NotificationProvider
	if err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Find(&providers).Error; err != nil {
		logger.ForTenant(tenantID, "").WithError(err).Error("failed to fetch notification providers")
		return
	}

	msg := fmt.Sprintf("%s\n\n%s", title, message)
	for _, provider := range providers {
		if automod && !provider.NotifyAutoMod {
			continue
		}
		if !automod && !provider.NotifyWarnings {
			continue
		}

		s.pending.Add(1)
		go func(p models.NotificationProvider) {
			defer s.pending.Done()
			if err := s.deliver(p, msg); err != nil {
				logger.ForTenant(tenantID, "").WithField("provider", p.Name).WithError(err).Warn("failed to send notification")
			}
		}(provider)
	}
}

func (s *NotificationService) deliver(p models.NotificationProvider, msg string) error {
	url := normalizeURL(p.Type, p.URL)
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		if _, err := validateWebhookURL(url); err != nil {
			return fmt.Errorf("invalid destination: %w", err)
		}
	}
	return s.send(url, msg)
}

// Wait blocks until background deliveries started so far have finished.
func (s *NotificationService) Wait() {
	s.pending.Wait()
}

// isPrivateIP returns true for RFC1918, loopback and link-local addresses.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 10:
			return true
		case ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31:
			return true
		case ip4[0] == 192 && ip4[1] == 168:
			return true
		}
		return false
	}
	// fc00::/7
	return len(ip) == net.IPv6len && ip[0]&0xfe == 0xfc
}

// validateWebhookURL rejects non-http schemes and hosts that resolve to
// private addresses. Loopback names are allowed for local testing.
func validateWebhookURL(raw string) (*neturl.URL, error) {
	u, err := neturl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing host")
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return u, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return nil, fmt.Errorf("disallowed host IP: %s", ip.String())
		}
	}
	return u, nil
}

// Stored notifications

func (s *NotificationService) List(ctx context.Context, tenantID string, unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.DB.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at desc")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) MarkAsRead(ctx context.Context, tenantID, id string) error {
	return s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("read", true).Error
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, tenantID string) error {
	return s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("tenant_id = ? AND read = ?", tenantID, false).
		Update("read", true).Error
}

// Providers

func (s *NotificationService) ListProviders(ctx context.Context, tenantID string) ([]models.NotificationProvider, error) {
	var providers []models.NotificationProvider
	err := s.DB.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at asc").Find(&providers).Error
	return providers, err
}

func (s *NotificationService) CreateProvider(ctx context.Context, p *models.NotificationProvider) error {
	if p.TenantID == "" || strings.TrimSpace(p.Name) == "" || p.Type == "" || p.URL == "" {
		return ErrInvalidProvider
	}
	warnings, automod := p.NotifyWarnings, p.NotifyAutoMod
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		// Insert substitutes the column default for a false preference.
		p.NotifyWarnings, p.NotifyAutoMod = warnings, automod
		return tx.Model(p).Select("NotifyWarnings", "NotifyAutoMod").Updates(p).Error
	})
}

func (s *NotificationService) UpdateProvider(ctx context.Context, p *models.NotificationProvider) error {
	var existing models.NotificationProvider
	if err := s.DB.WithContext(ctx).First(&existing, "id = ? AND tenant_id = ?", p.ID, p.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProviderNotFound
		}
		return err
	}
	p.CreatedAt = existing.CreatedAt
	return s.DB.WithContext(ctx).Save(p).Error
}

func (s *NotificationService) DeleteProvider(ctx context.Context, tenantID, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&models.NotificationProvider{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProviderNotFound
	}
	return nil
}

// TestProvider sends a fixed message to p synchronously.
func (s *NotificationService) TestProvider(p models.NotificationProvider) error {
	return s.deliver(p, "Test notification from Warden")
}
