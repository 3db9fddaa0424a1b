package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-auth-session/core"
)

type countingStorage struct {
	mu       sync.Mutex
	values   map[string]string
	getCalls int
	getErr   error
	setErr   error
}

func (s *countingStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return "", false, s.getErr
	}
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *countingStorage) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	return nil
}

func (s *countingStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *countingStorage) Namespace() string {
	return "work"
}

func TestCachedStorage_Get_MissFetchThenHit(t *testing.T) {
	base := &countingStorage{values: map[string]string{core.StorageKeyAccessToken: "access-1"}}
	storage, err := NewCachedStorage(base, newTestStorageCacheService(t))
	if err != nil {
		t.Fatalf("new cached storage: %v", err)
	}

	for i := 0; i < 2; i++ {
		value, found, err := storage.Get(context.Background(), core.StorageKeyAccessToken)
		if err != nil || !found || value != "access-1" {
			t.Fatalf("get %d: value=%q found=%v err=%v", i, value, found, err)
		}
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be cache hit, base get calls=%d", base.getCalls)
	}
}

func TestCachedStorage_CachesMisses(t *testing.T) {
	base := &countingStorage{}
	storage, err := NewCachedStorage(base, newTestStorageCacheService(t))
	if err != nil {
		t.Fatalf("new cached storage: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, found, err := storage.Get(context.Background(), core.StorageKeyUser); err != nil || found {
			t.Fatalf("expected miss, found=%v err=%v", found, err)
		}
	}
	if base.getCalls != 1 {
		t.Fatalf("expected cached miss, base get calls=%d", base.getCalls)
	}
}

func TestCachedStorage_SetAndRemove_InvalidateCachedKey(t *testing.T) {
	base := &countingStorage{values: map[string]string{core.StorageKeyRefreshToken: "refresh-1"}}
	storage, err := NewCachedStorage(base, newTestStorageCacheService(t))
	if err != nil {
		t.Fatalf("new cached storage: %v", err)
	}
	ctx := context.Background()

	if _, _, err := storage.Get(ctx, core.StorageKeyRefreshToken); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := storage.Set(ctx, core.StorageKeyRefreshToken, "refresh-2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, _, err := storage.Get(ctx, core.StorageKeyRefreshToken)
	if err != nil || value != "refresh-2" {
		t.Fatalf("expected refreshed value after set, got %q err=%v", value, err)
	}
	if base.getCalls != 2 {
		t.Fatalf("expected set to invalidate cache, base get calls=%d", base.getCalls)
	}

	if err := storage.Remove(ctx, core.StorageKeyRefreshToken); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, found, err := storage.Get(ctx, core.StorageKeyRefreshToken); err != nil || found {
		t.Fatalf("expected miss after remove, found=%v err=%v", found, err)
	}
}

func TestCachedStorage_PropagatesBaseErrors(t *testing.T) {
	base := &countingStorage{getErr: errors.New("db down")}
	storage, err := NewCachedStorage(base, newTestStorageCacheService(t))
	if err != nil {
		t.Fatalf("new cached storage: %v", err)
	}
	if _, _, err := storage.Get(context.Background(), core.StorageKeyUser); err == nil {
		t.Fatalf("expected base error propagation")
	}

	base.setErr = errors.New("read only")
	if err := storage.Set(context.Background(), core.StorageKeyUser, "v"); err == nil {
		t.Fatalf("expected base set error propagation")
	}
}

func TestCachedStorage_RequiresDependencies(t *testing.T) {
	if _, err := NewCachedStorage(nil, newTestStorageCacheService(t)); err == nil {
		t.Fatalf("expected error for nil base")
	}
	if _, err := NewCachedStorage(&countingStorage{}, nil); err == nil {
		t.Fatalf("expected error for nil cache")
	}
}

func TestStorageCacheKey_Contract(t *testing.T) {
	got := StorageCacheKey("work space", " accessToken ")
	want := "go-auth-session::storage::v1::work%20space::accessToken"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	storage, err := NewCachedStorage(&countingStorage{}, newTestStorageCacheService(t))
	if err != nil {
		t.Fatalf("new cached storage: %v", err)
	}
	if storage.namespace != "work" {
		t.Fatalf("expected namespace from base, got %q", storage.namespace)
	}
}

func newTestStorageCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}
