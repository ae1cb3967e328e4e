package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/moderation"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidMember  = errors.New("member needs a tenant and user id")
)

var mentionRegex = regexp.MustCompile(`^<@!?([^>]+)>$`)

// MemberService is the tenant member directory. It is refreshed from the
// platform bridge through Sync and resolves command targets.
type MemberService struct {
	db *gorm.DB
}

func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db}
}

// EnsureTenant creates the tenant row or refreshes its name and owner.
func (s *MemberService) EnsureTenant(ctx context.Context, t *models.Tenant) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "owner_id", "updated_at"}),
	}).Create(t).Error
}

func (s *MemberService) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.db.WithContext(ctx).First(&t, "id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Upsert writes one member snapshot keyed on (tenant, user).
func (s *MemberService) Upsert(ctx context.Context, m *models.Member) error {
	if m.TenantID == "" || m.UserID == "" {
		return ErrInvalidMember
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Tenant{ID: m.TenantID}).Error; err != nil {
			return err
		}
		return upsertMember(tx, m)
	})
}

func upsertMember(tx *gorm.DB, m *models.Member) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "rank", "capabilities", "updated_at"}),
	}).Create(m).Error
}

// Sync replaces the tenant's directory snapshot: the tenant row is refreshed
// and every listed member upserted. Members absent from the list are kept,
// since warnings may still refer to them.
func (s *MemberService) Sync(ctx context.Context, t *models.Tenant, members []models.Member) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "owner_id", "updated_at"}),
		}).Create(t).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].TenantID = t.ID
			if members[i].UserID == "" {
				return ErrInvalidMember
			}
			if err := upsertMember(tx, &members[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.ForTenant(t.ID, "").WithField("members", len(members)).Info("member directory synced")
	return nil
}

// List returns the tenant's members ordered by rank, most senior first.
func (s *MemberService) List(ctx context.Context, tenantID string) ([]models.Member, error) {
	var list []models.Member
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("rank desc, user_id asc").Find(&list).Error
	return list, err
}

// Resolve implements moderation.Directory. ref is tried as a user id, then as
// a mention, then as a case-insensitive display name.
func (s *MemberService) Resolve(ctx context.Context, tenantID, ref string) (*moderation.Actor, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, moderation.ErrActorNotFound
	}
	db := s.db.WithContext(ctx)

	var tenant models.Tenant
	if err := db.First(&tenant, "id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, moderation.ErrActorNotFound
		}
		return nil, err
	}

	ids := []string{ref}
	if m := mentionRegex.FindStringSubmatch(ref); m != nil {
		ids = append(ids, m[1])
	}
	for _, id := range ids {
		var m models.Member
		err := db.Where("tenant_id = ? AND user_id = ?", tenantID, id).First(&m).Error
		if err == nil {
			return toActor(&tenant, &m), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var byName []models.Member
	if err := db.Where("tenant_id = ? AND LOWER(display_name) = LOWER(?)", tenantID, ref).
		Limit(2).Find(&byName).Error; err != nil {
		return nil, err
	}
	switch len(byName) {
	case 0:
		return nil, moderation.ErrActorNotFound
	case 1:
		return toActor(&tenant, &byName[0]), nil
	default:
		return nil, moderation.ErrAmbiguousRef
	}
}

func toActor(t *models.Tenant, m *models.Member) *moderation.Actor {
	a := &moderation.Actor{
		ID:          m.UserID,
		TenantID:    m.TenantID,
		DisplayName: m.DisplayName,
		Rank:        m.Rank,
		IsOwner:     t.OwnerID != "" && t.OwnerID == m.UserID,
	}
	for _, name := range m.CapabilityNames() {
		if moderation.IsKnownCapability(name) {
			a.Capabilities = append(a.Capabilities, moderation.Capability(name))
		}
	}
	return a
}
