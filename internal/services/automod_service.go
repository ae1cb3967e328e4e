package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/warden/internal/models"
)

var (
	ErrRuleNotFound = errors.New("auto-mod rule not found")
	ErrInvalidRule  = errors.New("invalid auto-mod rule")
)

// AutoModService stores the per-tenant threshold rules.
type AutoModService struct {
	db *gorm.DB
}

func NewAutoModService(db *gorm.DB) *AutoModService {
	return &AutoModService{db: db}
}

// Upsert creates the rule for (tenant, threshold) or replaces the existing
// one's action, duration and reason.
func (s *AutoModService) Upsert(ctx context.Context, rule *models.AutoModRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Tenant{ID: rule.TenantID}).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "threshold"}},
			DoUpdates: clause.AssignmentColumns([]string{"action", "duration", "reason", "created_by", "updated_at"}),
		}).Create(rule).Error; err != nil {
			return err
		}
		var stored models.AutoModRule
		if err := tx.Where("tenant_id = ? AND threshold = ?", rule.TenantID, rule.Threshold).First(&stored).Error; err != nil {
			return err
		}
		*rule = stored
		return nil
	})
}

// Match returns the rule whose threshold equals count, or nil.
func (s *AutoModService) Match(ctx context.Context, tenantID string, count int64) (*models.AutoModRule, error) {
	var rule models.AutoModRule
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND threshold = ?", tenantID, count).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// List returns the tenant's rules ordered by threshold.
func (s *AutoModService) List(ctx context.Context, tenantID string) ([]models.AutoModRule, error) {
	var rules []models.AutoModRule
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("threshold asc").Find(&rules).Error
	return rules, err
}

func (s *AutoModService) Get(ctx context.Context, tenantID string, threshold int) (*models.AutoModRule, error) {
	var rule models.AutoModRule
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND threshold = ?", tenantID, threshold).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// Delete removes the rule at threshold. Existing warnings are untouched.
func (s *AutoModService) Delete(ctx context.Context, tenantID string, threshold int) error {
	res := s.db.WithContext(ctx).
		Where("tenant_id = ? AND threshold = ?", tenantID, threshold).
		Delete(&models.AutoModRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}
