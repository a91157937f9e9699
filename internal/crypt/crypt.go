// Package crypt encrypts sensitive memory fields and derives pseudonymous
// speaker references.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeySize is the length in bytes of the master key (AES-256).
const KeySize = 32

const (
	cipherPrefix = "v1:"
	speakerLabel = "hye-memory/speaker-ref/v1"
)

// ErrDecryption is returned when a value is not ciphertext produced under the
// current key.
var ErrDecryption = errors.New("decryption failed")

// Gate holds the process secret. It is safe for concurrent use.
type Gate struct {
	aead       cipher.AEAD
	speakerKey []byte
}

// New creates a Gate from a 32-byte master key.
func New(key []byte) (*Gate, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypt: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(speakerLabel))
	return &Gate{aead: aead, speakerKey: mac.Sum(nil)}, nil
}

// Encrypt seals plaintext with a random nonce.
func (g *Gate) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, g.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypt: nonce: %w", err)
	}
	sealed := g.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return cipherPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt under the same key.
func (g *Gate) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, cipherPrefix) {
		return "", fmt.Errorf("%w: not a ciphertext", ErrDecryption)
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(ciphertext, cipherPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	ns := g.aead.NonceSize()
	if len(raw) < ns+g.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}
	plain, err := g.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plain), nil
}

// Pseudonymize returns a stable, non-reversible reference for a speaker id.
// The same id under the same key always yields the same reference.
func (g *Gate) Pseudonymize(speakerID string) string {
	mac := hmac.New(sha256.New, g.speakerKey)
	mac.Write([]byte(speakerID))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateKey returns a fresh random master key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncodeKey renders a key for config files and environment variables.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// ParseKey decodes a base64 master key.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("crypt: decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypt: key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// LoadOrCreateKey reads the key file at path, generating and persisting a new
// key if the file does not exist.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return ParseKey(string(data))
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("crypt: read key: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("crypt: create key dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(EncodeKey(key)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("crypt: write key: %w", err)
	}
	return key, nil
}
