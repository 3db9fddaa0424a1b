package security

import (
	"context"
	"fmt"

	"github.com/goliatone/go-auth-session/core"
)

type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// SealedStorage encrypts values on Set and decrypts them on Get. Values
// written before sealing was enabled are returned unchanged and sealed on
// the next write.
type SealedStorage struct {
	base   core.Storage
	sealer Sealer
}

func NewSealedStorage(base core.Storage, sealer Sealer) (*SealedStorage, error) {
	if base == nil {
		return nil, fmt.Errorf("security: base storage is required")
	}
	if sealer == nil {
		return nil, fmt.Errorf("security: sealer is required")
	}
	return &SealedStorage{base: base, sealer: sealer}, nil
}

// Namespace forwards the base storage namespace for cache keys.
func (s *SealedStorage) Namespace() string {
	if s == nil {
		return ""
	}
	if named, ok := s.base.(interface{ Namespace() string }); ok {
		return named.Namespace()
	}
	return ""
}

func (s *SealedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.base == nil || s.sealer == nil {
		return "", false, fmt.Errorf("security: sealed storage is not configured")
	}
	value, found, err := s.base.Get(ctx, key)
	if err != nil || !found {
		return "", found, err
	}
	if !IsSealed(value) {
		return value, true, nil
	}
	plaintext, err := s.sealer.Open(value)
	if err != nil {
		return "", false, fmt.Errorf("security: open %s: %w", key, err)
	}
	return plaintext, true, nil
}

func (s *SealedStorage) Set(ctx context.Context, key string, value string) error {
	if s == nil || s.base == nil || s.sealer == nil {
		return fmt.Errorf("security: sealed storage is not configured")
	}
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return err
	}
	return s.base.Set(ctx, key, sealed)
}

func (s *SealedStorage) Remove(ctx context.Context, key string) error {
	if s == nil || s.base == nil {
		return fmt.Errorf("security: sealed storage is not configured")
	}
	return s.base.Remove(ctx, key)
}

var (
	_ core.Storage = (*SealedStorage)(nil)
	_ Sealer       = (*AppKeySealer)(nil)
)
