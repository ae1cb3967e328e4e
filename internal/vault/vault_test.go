package vault

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	v, err := New(key)
	require.NoError(t, err)
	return v
}

func TestNew_RejectsWrongKeySize(t *testing.T) {
	_, err := New(make([]byte, 16))
	assert.Error(t, err)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	v := newTestVault(t)
	for _, plaintext := range []string{"", "sk-test-123", strings.Repeat("x", 4096), "ключ:with:colons"} {
		token, err := v.Encrypt(plaintext)
		require.NoError(t, err)
		assert.True(t, IsEncrypted(token), "token %q should look encrypted", token)

		got, err := v.Decrypt(token)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncrypt_TokenShape(t *testing.T) {
	v := newTestVault(t)
	token, err := v.Encrypt("secret")
	require.NoError(t, err)

	parts := strings.Split(token, ":")
	require.Len(t, parts, 3)
	nonce, _ := base64.StdEncoding.DecodeString(parts[0])
	ct, _ := base64.StdEncoding.DecodeString(parts[1])
	tag, _ := base64.StdEncoding.DecodeString(parts[2])
	assert.Len(t, nonce, NonceSize)
	assert.Len(t, ct, len("secret"))
	assert.Len(t, tag, TagSize)
}

func TestEncrypt_NoncesAreUnique(t *testing.T) {
	v := newTestVault(t)
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		token, err := v.Encrypt("same plaintext")
		require.NoError(t, err)
		nonce := strings.SplitN(token, ":", 2)[0]
		_, dup := seen[nonce]
		require.False(t, dup, "nonce reused after %d calls", i)
		seen[nonce] = struct{}{}
	}
}

func flipBit(t *testing.T, token string, segment, bit int) string {
	t.Helper()
	parts := strings.Split(token, ":")
	raw, err := base64.StdEncoding.DecodeString(parts[segment])
	require.NoError(t, err)
	raw[bit/8] ^= 1 << (bit % 8)
	parts[segment] = base64.StdEncoding.EncodeToString(raw)
	return strings.Join(parts, ":")
}

func TestDecrypt_DetectsEveryBitFlip(t *testing.T) {
	v := newTestVault(t)
	token, err := v.Encrypt("api-key")
	require.NoError(t, err)

	for _, segment := range []int{1, 2} {
		raw, _ := base64.StdEncoding.DecodeString(strings.Split(token, ":")[segment])
		for bit := 0; bit < len(raw)*8; bit++ {
			tampered := flipBit(t, token, segment, bit)
			got, err := v.Decrypt(tampered)
			require.ErrorIs(t, err, ErrDecryption, "segment %d bit %d", segment, bit)
			require.Empty(t, got)
		}
	}
}

func TestDecrypt_RejectsMalformedTokens(t *testing.T) {
	v := newTestVault(t)
	good, err := v.Encrypt("value")
	require.NoError(t, err)
	parts := strings.Split(good, ":")

	shortNonce := base64.StdEncoding.EncodeToString(make([]byte, 8))
	shortTag := base64.StdEncoding.EncodeToString(make([]byte, 12))

	cases := map[string]string{
		"two segments":  parts[0] + ":" + parts[1],
		"four segments": good + ":extra",
		"short nonce":   shortNonce + ":" + parts[1] + ":" + parts[2],
		"short tag":     parts[0] + ":" + parts[1] + ":" + shortTag,
		"bad base64":    "!!!:" + parts[1] + ":" + parts[2],
		"plaintext":     "sk-legacy",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := v.Decrypt(token)
			assert.ErrorIs(t, err, ErrDecryption)
			assert.Empty(t, got)
		})
	}
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	a := newTestVault(t)
	b := newTestVault(t)
	token, err := a.Encrypt("rotated")
	require.NoError(t, err)

	_, err = b.Decrypt(token)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestIsEncrypted(t *testing.T) {
	v := newTestVault(t)
	token, err := v.Encrypt("x")
	require.NoError(t, err)

	assert.True(t, IsEncrypted(token))
	assert.False(t, IsEncrypted("sk-plain-api-key"))
	assert.False(t, IsEncrypted("a:b"))
	assert.False(t, IsEncrypted("http://host:8080/path"))
	assert.False(t, IsEncrypted("::"))
	assert.False(t, IsEncrypted("not base64!:also:no"))
}
