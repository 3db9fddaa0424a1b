// Package security seals stored session values with an application key so
// tokens are not kept in plaintext at rest.
package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	envelopePrefix    = "auth-session.sealed.v1:"
	envelopeAlgorithm = "aes-256-gcm"
)

type Option func(*AppKeySealer)

// AppKeySealer encrypts values with AES-GCM under a single application key.
type AppKeySealer struct {
	key     []byte
	keyID   string
	version int
}

type envelope struct {
	KeyID      string `json:"kid"`
	Version    int    `json:"ver"`
	Algorithm  string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func WithKeyID(id string) Option {
	return func(sealer *AppKeySealer) {
		trimmed := strings.TrimSpace(id)
		if trimmed != "" {
			sealer.keyID = trimmed
		}
	}
}

func WithVersion(version int) Option {
	return func(sealer *AppKeySealer) {
		if version > 0 {
			sealer.version = version
		}
	}
}

// NewAppKeySealer accepts raw AES key sizes as is; any other material is
// hashed to a 32 byte key.
func NewAppKeySealer(keyMaterial []byte, opts ...Option) (*AppKeySealer, error) {
	key := bytes.TrimSpace(keyMaterial)
	if len(key) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	sealer := &AppKeySealer{
		key:     normalizeKey(key),
		keyID:   "app-key",
		version: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sealer)
		}
	}
	return sealer, nil
}

func NewAppKeySealerFromString(key string, opts ...Option) (*AppKeySealer, error) {
	return NewAppKeySealer([]byte(key), opts...)
}

func (s *AppKeySealer) Seal(plaintext string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("security: sealer is nil")
	}
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("security: nonce generation failed: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), []byte(s.keyID))
	data, err := json.Marshal(envelope{
		KeyID:      s.keyID,
		Version:    s.version,
		Algorithm:  envelopeAlgorithm,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	})
	if err != nil {
		return "", fmt.Errorf("security: encode envelope: %w", err)
	}
	return envelopePrefix + string(data), nil
}

func (s *AppKeySealer) Open(sealed string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("security: sealer is nil")
	}
	if !IsSealed(sealed) {
		return "", fmt.Errorf("security: invalid sealed value prefix")
	}
	var parsed envelope
	if err := json.Unmarshal([]byte(strings.TrimPrefix(sealed, envelopePrefix)), &parsed); err != nil {
		return "", fmt.Errorf("security: decode envelope: %w", err)
	}
	if parsed.Algorithm != "" && parsed.Algorithm != envelopeAlgorithm {
		return "", fmt.Errorf("security: unsupported algorithm %q", parsed.Algorithm)
	}
	if parsed.KeyID != s.keyID {
		return "", fmt.Errorf("security: key id mismatch: got %q want %q", parsed.KeyID, s.keyID)
	}
	if parsed.Version > 0 && parsed.Version != s.version {
		return "", fmt.Errorf("security: key version mismatch: got %d want %d", parsed.Version, s.version)
	}
	nonce, err := base64.StdEncoding.DecodeString(parsed.Nonce)
	if err != nil {
		return "", fmt.Errorf("security: decode nonce: %w", err)
	}
	payload, err := base64.StdEncoding.DecodeString(parsed.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("security: decode ciphertext: %w", err)
	}
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("security: invalid nonce size")
	}
	plaintext, err := gcm.Open(nil, nonce, payload, []byte(s.keyID))
	if err != nil {
		return "", fmt.Errorf("security: decrypt payload: %w", err)
	}
	return string(plaintext), nil
}

func (s *AppKeySealer) KeyID() string {
	if s == nil {
		return ""
	}
	return s.keyID
}

func (s *AppKeySealer) Version() int {
	if s == nil {
		return 0
	}
	return s.version
}

func (s *AppKeySealer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

// IsSealed reports whether value carries the sealed envelope prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, envelopePrefix)
}

func normalizeKey(value []byte) []byte {
	if len(value) == 16 || len(value) == 24 || len(value) == 32 {
		key := make([]byte, len(value))
		copy(key, value)
		return key
	}
	sum := sha256.Sum256(value)
	key := make([]byte, len(sum))
	copy(key, sum[:])
	return key
}
