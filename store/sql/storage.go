// Package sqlstore persists the session keys in a SQL table through bun. It
// backs core.Storage for hosts that keep the session across restarts.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-auth-session/core"
)

const DefaultNamespace = "default"

// Storage is a namespaced key/value table. Each namespace holds one
// session, so several profiles can share a database.
type Storage struct {
	db        *bun.DB
	repo      repository.Repository[*itemRecord]
	namespace string
	now       func() time.Time
}

type Option func(*Storage)

func WithNamespace(namespace string) Option {
	return func(s *Storage) {
		if trimmed := strings.TrimSpace(namespace); trimmed != "" {
			s.namespace = trimmed
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStorageFromPersistence(client *persistence.Client, opts ...Option) (*Storage, error) {
	return NewStorage(client, opts...)
}

// NewStorage accepts a *bun.DB or anything exposing DB() *bun.DB.
func NewStorage(persistenceClient any, opts ...Option) (*Storage, error) {
	db, err := resolveBunDB(persistenceClient)
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepository[*itemRecord](db, itemHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid item repository wiring: %w", err)
		}
	}
	storage := &Storage{
		db:        db,
		repo:      repo,
		namespace: DefaultNamespace,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(storage)
		}
	}
	return storage, nil
}

func (s *Storage) Namespace() string {
	if s == nil {
		return ""
	}
	return s.namespace
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.repo == nil {
		return "", false, fmt.Errorf("sqlstore: storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, fmt.Errorf("sqlstore: key is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("namespace", "=", s.namespace),
		repository.SelectBy("item_key", "=", key),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 || records[0] == nil {
		return "", false, nil
	}
	return records[0].Value, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, value string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: key is required")
	}
	now := s.now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findItemTx(ctx, tx, s.namespace, key)
		if err != nil {
			return err
		}
		if record == nil {
			_, createErr := s.repo.CreateTx(ctx, tx, &itemRecord{
				ID:        uuid.NewString(),
				Namespace: s.namespace,
				Key:       key,
				Value:     value,
				CreatedAt: now,
				UpdatedAt: now,
			})
			return createErr
		}
		_, updateErr := tx.NewUpdate().
			Model((*itemRecord)(nil)).
			Set("item_value = ?", value).
			Set("updated_at = ?", now).
			Where("id = ?", record.ID).
			Exec(ctx)
		return updateErr
	})
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: key is required")
	}
	_, err := s.db.NewDelete().
		Model((*itemRecord)(nil)).
		Where("namespace = ?", s.namespace).
		Where("item_key = ?", key).
		Exec(ctx)
	return err
}

// Keys lists the keys stored in the namespace, oldest first.
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: storage is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("namespace", "=", s.namespace),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(records))
	for _, record := range records {
		if record != nil {
			keys = append(keys, record.Key)
		}
	}
	return keys, nil
}

func findItemTx(ctx context.Context, tx bun.Tx, namespace string, key string) (*itemRecord, error) {
	record := &itemRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.namespace = ?", namespace).
		Where("?TableAlias.item_key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

var _ core.Storage = (*Storage)(nil)
