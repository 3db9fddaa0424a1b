package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-auth-session/core"
)

const storageCacheKeyPrefix = "go-auth-session::storage::v1"

// cachedItem records misses too; writes through this decorator invalidate
// the entry.
type cachedItem struct {
	Value string
	Found bool
}

// CachedStorage serves reads from a cache in front of base. The transport
// reads the access token on every request, so this keeps that off the
// database.
type CachedStorage struct {
	base      core.Storage
	cache     repositorycache.CacheService
	namespace string
}

func NewCachedStorage(base core.Storage, cacheService repositorycache.CacheService) (*CachedStorage, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base storage is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: storage cache service is required")
	}
	namespace := DefaultNamespace
	if named, ok := base.(interface{ Namespace() string }); ok && strings.TrimSpace(named.Namespace()) != "" {
		namespace = named.Namespace()
	}
	return &CachedStorage{base: base, cache: cacheService, namespace: namespace}, nil
}

// StorageCacheKey returns go-auth-session::storage::v1::<namespace>::<key>
// with each segment URL-path escaped.
func StorageCacheKey(namespace string, key string) string {
	return strings.Join([]string{
		storageCacheKeyPrefix,
		url.PathEscape(strings.TrimSpace(namespace)),
		url.PathEscape(strings.TrimSpace(key)),
	}, "::")
}

func (s *CachedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", false, fmt.Errorf("sqlstore: cached storage is not configured")
	}
	item, err := repositorycache.GetOrFetch(ctx, s.cache, StorageCacheKey(s.namespace, key), func(ctx context.Context) (cachedItem, error) {
		value, found, fetchErr := s.base.Get(ctx, key)
		if fetchErr != nil {
			return cachedItem{}, fetchErr
		}
		return cachedItem{Value: value, Found: found}, nil
	})
	if err != nil {
		return "", false, err
	}
	return item.Value, item.Found, nil
}

func (s *CachedStorage) Set(ctx context.Context, key string, value string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached storage is not configured")
	}
	if err := s.base.Set(ctx, key, value); err != nil {
		return err
	}
	return s.cache.Delete(ctx, StorageCacheKey(s.namespace, key))
}

func (s *CachedStorage) Remove(ctx context.Context, key string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached storage is not configured")
	}
	if err := s.base.Remove(ctx, key); err != nil {
		return err
	}
	return s.cache.Delete(ctx, StorageCacheKey(s.namespace, key))
}

var _ core.Storage = (*CachedStorage)(nil)
