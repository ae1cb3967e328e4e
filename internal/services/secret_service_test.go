package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/vault"
)

func testVault(t *testing.T, fill byte) *vault.Vault {
	t.Helper()
	v, err := vault.New(bytes.Repeat([]byte{fill}, vault.KeySize))
	require.NoError(t, err)
	return v
}

func storedToken(t *testing.T, svc *SecretService, owner string) string {
	t.Helper()
	row, err := svc.Describe(context.Background(), owner)
	require.NoError(t, err)
	return row.Token
}

func TestSecretService_SetEncryptsAndGetDecrypts(t *testing.T) {
	svc := NewSecretService(openTestDB(t), testVault(t, 1))
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "owner", SecretInput{Key: "sk-live-abcdef123456", Provider: "openai", Model: "gpt"}))
	token := storedToken(t, svc, "owner")
	assert.True(t, vault.IsEncrypted(token))
	assert.NotContains(t, token, "sk-live")

	got, err := svc.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "sk-live-abcdef123456", got.Key)
	assert.Equal(t, "openai", got.Provider)

	// Replacing keeps a single row.
	require.NoError(t, svc.Set(ctx, "owner", SecretInput{Key: "sk-new-key-0000"}))
	got, err = svc.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "sk-new-key-0000", got.Key)
	assert.Empty(t, got.Provider)
}

func TestSecretService_SetRejectsEmptyKey(t *testing.T) {
	svc := NewSecretService(openTestDB(t), testVault(t, 1))
	assert.ErrorIs(t, svc.Set(context.Background(), "owner", SecretInput{Key: "   "}), ErrInvalidSecret)
}

func TestSecretService_MigratesLegacyPlaintext(t *testing.T) {
	db := openTestDB(t)
	svc := NewSecretService(db, testVault(t, 1))
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Secret{OwnerID: "owner", Token: "legacy-plaintext-key"}).Error)

	got, err := svc.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext-key", got.Key)

	token := storedToken(t, svc, "owner")
	assert.True(t, vault.IsEncrypted(token))

	got, err = svc.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext-key", got.Key)
}

func TestSecretService_PurgesUndecryptableToken(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rotated, err := testVault(t, 2).Encrypt("old-key")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Secret{OwnerID: "rotated", Token: rotated}).Error)
	require.NoError(t, db.Create(&models.Secret{OwnerID: "damaged", Token: "AAAA:AAAA:AAAA"}).Error)

	svc := NewSecretService(db, testVault(t, 1))
	for _, owner := range []string{"rotated", "damaged"} {
		_, err := svc.Get(ctx, owner)
		assert.ErrorIs(t, err, ErrSecretCorrupt, owner)

		_, err = svc.Describe(ctx, owner)
		assert.ErrorIs(t, err, ErrSecretNotFound, owner)
	}
}

func TestSecretService_MaskedNeverShowsKey(t *testing.T) {
	svc := NewSecretService(openTestDB(t), testVault(t, 1))
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "owner", SecretInput{Key: "sk-abcdefghijkl-9876", Endpoint: "https://api.example.com"}))

	row, masked, err := svc.Masked(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", row.Endpoint)
	assert.True(t, strings.HasSuffix(masked, "9876"))
	assert.NotContains(t, masked, "abcdef")
}

func TestSecretService_Delete(t *testing.T) {
	svc := NewSecretService(openTestDB(t), testVault(t, 1))
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "owner", SecretInput{Key: "k-123456789"}))

	require.NoError(t, svc.Delete(ctx, "owner"))
	assert.ErrorIs(t, svc.Delete(ctx, "owner"), ErrSecretNotFound)
	_, err := svc.Get(ctx, "owner")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestSecretService_Sweep(t *testing.T) {
	db := openTestDB(t)
	svc := NewSecretService(db, testVault(t, 1))
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "good", SecretInput{Key: "fine-key-1234"}))
	require.NoError(t, db.Create(&models.Secret{OwnerID: "legacy", Token: "plain-key"}).Error)
	require.NoError(t, db.Create(&models.Secret{OwnerID: "broken", Token: "AAAA:AAAA:AAAA"}).Error)

	report, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 3, Migrated: 1, Purged: 1}, report)

	report, err = svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 2}, report)
}
