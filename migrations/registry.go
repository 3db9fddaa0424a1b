// Package migrations registers the embedded session schema with a
// go-persistence-bun client, one filesystem per dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	authsession "github.com/goliatone/go-auth-session"
	"github.com/goliatone/go-auth-session/core"
)

const (
	DialectPostgres = core.StorageDriverPostgres
	DialectSQLite   = core.StorageDriverSQLite

	SourceLabel = "go-auth-session"

	rootDir   = "data/sql/migrations"
	sqliteDir = "sqlite"
)

// FilesystemSpec is one dialect's migration directory. Path is relative to
// the source root and only used in errors.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel string
	Dialects    []string
	Filesystems []FilesystemSpec

	source fs.FS
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithDialects limits registration to the named dialects. Driver names such
// as sqlite3 or postgresql are accepted; unknown names are ignored.
func WithDialects(dialects ...string) Option {
	return func(r *Registration) {
		next := make([]string, 0, len(dialects))
		for _, name := range dialects {
			dialect, err := DialectForDriver(name)
			if err != nil || slices.Contains(next, dialect) {
				continue
			}
			next = append(next, dialect)
		}
		if len(next) > 0 {
			r.Dialects = next
		}
	}
}

// WithSource replaces the embedded migrations with root, laid out the same
// way.
func WithSource(root fs.FS) Option {
	return func(r *Registration) {
		if root != nil {
			r.source = root
		}
	}
}

// DialectForDriver maps a storage or database/sql driver name to the
// migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}

// Filesystems resolves the postgres and sqlite directories under root, or
// under the embedded migrations when root is nil. Each must hold at least
// one *.up.sql file.
func Filesystems(root fs.FS) ([]FilesystemSpec, error) {
	if root == nil {
		root = authsession.GetMigrationsFS()
	}
	base, err := fs.Sub(root, rootDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootDir, err)
	}
	sqliteFS, err := fs.Sub(base, sqliteDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: rootDir, FS: base},
		{Dialect: DialectSQLite, Path: rootDir + "/" + sqliteDir, FS: sqliteFS},
	}
	for _, dir := range filesystems {
		matches, err := fs.Glob(dir.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", dir.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s has no *.up.sql files", dir.Path)
		}
	}
	return filesystems, nil
}

// Register hands each selected dialect's filesystem to registerFn, usually a
// wrapper around persistence.Client.RegisterSQLMigrations.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: SourceLabel,
		Dialects:    []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	filesystems, err := Filesystems(reg.source)
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, dir := range reg.Filesystems {
		if !slices.Contains(reg.Dialects, dir.Dialect) {
			continue
		}
		if err := registerFn(ctx, dir.Dialect, reg.SourceLabel, dir.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s: %w", dir.Dialect, err)
		}
	}
	return reg, nil
}
