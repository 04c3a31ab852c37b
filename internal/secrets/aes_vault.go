// Package secrets adapts AES-256-GCM encryption for secret values so
// the dynamic property evaluator can resolve a "vault|<key>" schema
// string into a decrypted value without it ever touching state in
// cleartext.
package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/forgewalk/forge/pkg/forge"
)

// secretKeyPrefix namespaces vault entries within a session's
// ForgeState so they never collide with CTN/LTA/_AR/_Int keys.
const secretKeyPrefix = "secret:"

// VaultConfig configures the AES vault key derivation.
// Provide either MasterKey (raw 32 bytes) or Passphrase + Salt.
type VaultConfig struct {
	MasterKey  []byte
	Passphrase string
	Salt       []byte
	Iterations int
}

// AESVault encrypts secrets with AES-256-GCM and persists them directly
// through a forge.ForgeState, namespaced under a sessionID the same way
// a walk's own CTN/LTA/response keys are. There is no generic
// key/value store indirection between the vault and its backend: a
// vault's whole reason to exist is to sit on the same durable state a
// session already has, so a secret survives the same crash-and-
// rehydrate cycle the rest of the session's state does.
type AESVault struct {
	state     forge.ForgeState
	sessionID string
	aead      cipher.AEAD
}

// NewAESVault creates a vault backed by state, with every key
// namespaced under sessionID.
func NewAESVault(state forge.ForgeState, sessionID string, cfg VaultConfig) (*AESVault, error) {
	key, err := deriveKey(cfg)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &AESVault{state: state, sessionID: sessionID, aead: aead}, nil
}

func deriveKey(cfg VaultConfig) ([]byte, error) {
	if len(cfg.MasterKey) > 0 {
		if len(cfg.MasterKey) != 32 {
			return nil, forge.NewErrorf(forge.ErrCodeVault,
				"master key must be 32 bytes, got %d", len(cfg.MasterKey))
		}
		return cfg.MasterKey, nil
	}
	if cfg.Passphrase == "" {
		return nil, forge.NewError(forge.ErrCodeVault, "either master_key or passphrase is required")
	}
	if len(cfg.Salt) == 0 {
		return nil, forge.NewError(forge.ErrCodeVault, "salt is required with passphrase")
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 100_000
	}
	return pbkdf2.Key(sha256.New, cfg.Passphrase, cfg.Salt, iterations, 32)
}

func (v *AESVault) encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (v *AESVault) decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := v.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, forge.NewError(forge.ErrCodeVault, "ciphertext too short")
	}
	nonce := ciphertext[:nonceSize]
	ct := ciphertext[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, forge.NewErrorf(forge.ErrCodeVault, "decrypt failed: %s", err.Error())
	}
	return plaintext, nil
}

// Store encrypts value and persists it under key, namespaced within
// the vault's session.
func (v *AESVault) Store(ctx context.Context, key string, value []byte) error {
	encrypted, err := v.encrypt(value)
	if err != nil {
		return err
	}
	return v.state.Set(ctx, v.sessionID, secretKeyPrefix+key, encrypted)
}

// Resolve fetches and decrypts the secret stored under key.
func (v *AESVault) Resolve(ctx context.Context, key string) ([]byte, error) {
	encrypted, ok, err := v.state.Get(ctx, v.sessionID, secretKeyPrefix+key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, forge.NewErrorf(forge.ErrCodeNotFound, "secret %q not found", key)
	}
	return v.decrypt(encrypted)
}
