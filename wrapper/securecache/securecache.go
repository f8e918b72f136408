// Package securecache provides a relaycache.Storage decorator that hashes
// cache keys with SHA-256 (always) and, when a passphrase is configured,
// encrypts stored bodies with AES-256-GCM.
package securecache

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/scrypt"

	"github.com/relaycache/relaycache"
)

const (
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
	nonceSize = 12
)

// Storage wraps an underlying relaycache.Storage, hashing every key and
// optionally encrypting every stored body.
type Storage struct {
	underlying relaycache.Storage
	gcm        cipher.AEAD
}

// New wraps underlying. Keys are always hashed with SHA-256. When
// passphrase is non-empty, bodies are additionally encrypted with
// AES-256-GCM using a key derived from passphrase via scrypt.
func New(underlying relaycache.Storage, passphrase string) (*Storage, error) {
	if underlying == nil {
		return nil, fmt.Errorf("securecache: underlying storage cannot be nil")
	}

	s := &Storage{underlying: underlying}
	if passphrase == "" {
		return s, nil
	}

	// Fixed salt: the passphrase itself is the secret input, and a
	// per-install random salt would need its own persistence story that
	// this wrapper does not own.
	salt := sha256.Sum256([]byte("relaycache-securecache-salt-v1"))
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("securecache: key derivation failed: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securecache: cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securecache: GCM creation failed: %w", err)
	}
	s.gcm = gcm
	return s, nil
}

// IsEncrypted reports whether a passphrase was configured.
func (s *Storage) IsEncrypted() bool {
	return s.gcm != nil
}

func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func (s *Storage) encrypt(data []byte) ([]byte, error) {
	if s.gcm == nil {
		return data, nil
	}
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("securecache: nonce generation failed: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, data, nil), nil
}

func (s *Storage) decrypt(data []byte) ([]byte, error) {
	if s.gcm == nil {
		return data, nil
	}
	if len(data) < nonceSize {
		return nil, fmt.Errorf("securecache: ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("securecache: decryption failed: %w", err)
	}
	return plaintext, nil
}

func (s *Storage) Get(ctx context.Context, key string) (relaycache.Entry, bool, error) {
	entry, hit, err := s.underlying.Get(ctx, hashKey(key))
	if err != nil || !hit {
		return entry, hit, err
	}

	body, err := s.decrypt(entry.Body)
	if err != nil {
		relaycache.GetLogger().Warn("securecache: decrypt failed", "error", err)
		return relaycache.Entry{}, false, err
	}
	out := entry
	out.Body = body
	return out, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	body, err := s.encrypt(entry.Body)
	if err != nil {
		relaycache.GetLogger().Warn("securecache: encrypt failed", "error", err)
		return err
	}
	stored := entry
	stored.Body = body
	return s.underlying.Set(ctx, hashKey(key), stored, ttl)
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.underlying.Remove(ctx, hashKey(key))
}

var _ relaycache.Storage = (*Storage)(nil)
