package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/warden/internal/models"
)

var ErrInvalidWarning = errors.New("warning needs a tenant, actor and moderator")

// WarningService is the gorm-backed warning ledger.
type WarningService struct {
	db *gorm.DB
}

func NewWarningService(db *gorm.DB) *WarningService {
	return &WarningService{db: db}
}

// Append inserts w and returns the actor's warning count including it. The
// tenant and a stub member row are created first when missing, so a warning
// always refers to a known member.
func (s *WarningService) Append(ctx context.Context, w *models.Warning) (int64, error) {
	if w.TenantID == "" || w.ActorID == "" || w.ModeratorID == "" {
		return 0, ErrInvalidWarning
	}

	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureMember(tx, w.TenantID, w.ActorID); err != nil {
			return err
		}
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		return tx.Model(&models.Warning{}).
			Where("tenant_id = ? AND actor_id = ?", w.TenantID, w.ActorID).
			Count(&count).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func ensureMember(tx *gorm.DB, tenantID, userID string) error {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Tenant{ID: tenantID}).Error; err != nil {
		return err
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.Member{TenantID: tenantID, UserID: userID}).Error
}

// List returns the actor's warnings, newest first.
func (s *WarningService) List(ctx context.Context, tenantID, actorID string) ([]models.Warning, error) {
	var list []models.Warning
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND actor_id = ?", tenantID, actorID).
		Order("created_at desc, id desc").
		Find(&list).Error
	return list, err
}

// Count returns how many warnings the actor has.
func (s *WarningService) Count(ctx context.Context, tenantID, actorID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Warning{}).
		Where("tenant_id = ? AND actor_id = ?", tenantID, actorID).
		Count(&n).Error
	return n, err
}

// Remove deletes one warning. It reports false when id does not belong to
// (tenant, actor).
func (s *WarningService) Remove(ctx context.Context, tenantID, actorID string, id uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND actor_id = ?", id, tenantID, actorID).
		Delete(&models.Warning{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Clear deletes all of the actor's warnings and returns how many were removed.
func (s *WarningService) Clear(ctx context.Context, tenantID, actorID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("tenant_id = ? AND actor_id = ?", tenantID, actorID).
		Delete(&models.Warning{})
	return res.RowsAffected, res.Error
}
