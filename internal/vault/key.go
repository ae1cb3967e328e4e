package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const keyInfo = "warden credential vault v1"

// LoadOrCreateKey reads the base64 master key stored at path, generating and
// persisting a new random key with 0600 permissions if the file is absent.
func LoadOrCreateKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if decErr != nil {
			return nil, fmt.Errorf("vault: decode key file %s: %w", path, decErr)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("vault: key file %s holds %d bytes, want %d", path, len(key), KeySize)
		}
		return key, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("vault: read key file: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("vault: generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("vault: create key directory: %w", err)
	}
	// O_EXCL so two processes racing on first boot cannot both win.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return LoadOrCreateKey(path)
		}
		return nil, fmt.Errorf("vault: create key file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(base64.StdEncoding.EncodeToString(key) + "\n"); err != nil {
		return nil, fmt.Errorf("vault: write key file: %w", err)
	}
	return key, nil
}

// DeriveKey stretches an operator passphrase into a master key with
// HKDF-SHA256. The same passphrase always yields the same key.
func DeriveKey(passphrase string) ([]byte, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, errors.New("vault: passphrase is empty")
	}
	r := hkdf.New(sha256.New, []byte(passphrase), nil, []byte(keyInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	return key, nil
}

// Open provisions the process-wide vault: a passphrase takes precedence over
// the key file.
func Open(keyPath, passphrase string) (*Vault, error) {
	var (
		key []byte
		err error
	)
	if passphrase != "" {
		key, err = DeriveKey(passphrase)
	} else {
		key, err = LoadOrCreateKey(keyPath)
	}
	if err != nil {
		return nil, err
	}
	return New(key)
}
