package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/util"
	"github.com/Wikid82/warden/internal/vault"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	// ErrSecretCorrupt means the stored token could not be decrypted. The
	// row has been purged and the owner must submit the key again.
	ErrSecretCorrupt = errors.New("stored secret could not be decrypted")
	ErrInvalidSecret = errors.New("secret key must not be empty")
)

// SecretInput is what an owner submits for their provider credential.
type SecretInput struct {
	Key      string
	Provider string
	Model    string
	Endpoint string
}

// DecryptedSecret is a secret with its key in plaintext. It never leaves
// the process.
type DecryptedSecret struct {
	OwnerID  string
	Key      string
	Provider string
	Model    string
	Endpoint string
}

// SweepReport summarizes one pass over the secrets table.
type SweepReport struct {
	Scanned  int
	Migrated int
	Purged   int
}

// SecretService stores owner credentials encrypted with the vault. Rows
// written before encryption existed are migrated in place on first read.
type SecretService struct {
	db    *gorm.DB
	vault *vault.Vault
}

func NewSecretService(db *gorm.DB, v *vault.Vault) *SecretService {
	return &SecretService{db: db, vault: v}
}

// Set encrypts in.Key and stores it for ownerID, replacing any previous row.
func (s *SecretService) Set(ctx context.Context, ownerID string, in SecretInput) error {
	key := strings.TrimSpace(in.Key)
	if ownerID == "" || key == "" {
		return ErrInvalidSecret
	}
	token, err := s.vault.Encrypt(key)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}
	row := &models.Secret{
		OwnerID:  ownerID,
		Token:    token,
		Provider: in.Provider,
		Model:    in.Model,
		Endpoint: in.Endpoint,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "provider", "model", "endpoint", "updated_at"}),
	}).Create(row).Error
}

// Describe returns the stored row without decrypting it.
func (s *SecretService) Describe(ctx context.Context, ownerID string) (*models.Secret, error) {
	var row models.Secret
	if err := s.db.WithContext(ctx).First(&row, "owner_id = ?", ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Get decrypts the owner's secret. A legacy plaintext row is encrypted and
// written back before returning; a token that fails to decrypt is deleted
// and ErrSecretCorrupt returned.
func (s *SecretService) Get(ctx context.Context, ownerID string) (*DecryptedSecret, error) {
	row, err := s.Describe(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	key, _, err := s.open(ctx, row)
	if err != nil {
		return nil, err
	}
	return &DecryptedSecret{
		OwnerID:  row.OwnerID,
		Key:      key,
		Provider: row.Provider,
		Model:    row.Model,
		Endpoint: row.Endpoint,
	}, nil
}

// Masked returns the row's key in masked form for display.
func (s *SecretService) Masked(ctx context.Context, ownerID string) (*models.Secret, string, error) {
	row, err := s.Describe(ctx, ownerID)
	if err != nil {
		return nil, "", err
	}
	key, _, err := s.open(ctx, row)
	if err != nil {
		return nil, "", err
	}
	return row, util.MaskSecret(key), nil
}

type openResult int

const (
	openedEncrypted openResult = iota
	openedMigrated
)

func (s *SecretService) open(ctx context.Context, row *models.Secret) (string, openResult, error) {
	log := logger.Log().WithField("owner_id", row.OwnerID)

	if !vault.IsEncrypted(row.Token) {
		token, err := s.vault.Encrypt(row.Token)
		if err != nil {
			return "", 0, fmt.Errorf("encrypt legacy secret: %w", err)
		}
		// Only replace the value we read; a concurrent Set wins.
		res := s.db.WithContext(ctx).Model(&models.Secret{}).
			Where("owner_id = ? AND token = ?", row.OwnerID, row.Token).
			Update("token", token)
		if res.Error != nil {
			return "", 0, fmt.Errorf("migrate legacy secret: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			metrics.IncVaultMigration()
			log.Info("migrated legacy plaintext secret")
		}
		return row.Token, openedMigrated, nil
	}

	plaintext, err := s.vault.Decrypt(row.Token)
	if err == nil {
		return plaintext, openedEncrypted, nil
	}

	metrics.IncVaultDecryptFailure()
	log.WithError(err).Warn("stored secret failed to decrypt, purging")
	if err := s.db.WithContext(ctx).
		Where("owner_id = ? AND token = ?", row.OwnerID, row.Token).
		Delete(&models.Secret{}).Error; err != nil {
		return "", 0, fmt.Errorf("purge corrupt secret: %w", err)
	}
	return "", 0, ErrSecretCorrupt
}

// Delete removes the owner's secret.
func (s *SecretService) Delete(ctx context.Context, ownerID string) error {
	res := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.Secret{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSecretNotFound
	}
	return nil
}

// Sweep walks every stored secret, migrating plaintext and purging tokens
// the current key cannot open.
func (s *SecretService) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	// Loaded up front: with a single connection no write may run while a
	// read cursor is open.
	var all []models.Secret
	if err := s.db.WithContext(ctx).Order("owner_id asc").Find(&all).Error; err != nil {
		return report, err
	}
	for i := range all {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		_, res, err := s.open(ctx, &all[i])
		switch {
		case errors.Is(err, ErrSecretCorrupt):
			report.Purged++
		case err != nil:
			return report, err
		case res == openedMigrated:
			report.Migrated++
		}
	}
	return report, nil
}
