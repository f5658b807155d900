package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// CategorySeedFile is the seed file holding the default service categories.
const CategorySeedFile = "seed/service_categories.yaml"

type categorySeed struct {
	Categories []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"categories"`
}

// Migrate applies migrations and optional seed files found in the repository.
// It creates a `schema_migrations` table to track applied migrations and applies
// any SQL files in `migrations/` that have not yet been recorded. Seed files
// are applied idempotently.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, seedFS fs.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migDir := "migrations"

	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec migration %s: %w", fname, err)
		}

		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, ?)`, version, time.Now().UTC().UnixMilli()); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		d.logger.Info("db: migration applied", slog.String("version", version))
	}

	if seedFS == nil {
		return nil
	}
	return seedCategories(ctx, d, seedFS)
}

func seedCategories(ctx context.Context, d *DB, seedFS fs.FS) error {
	b, err := fs.ReadFile(seedFS, CategorySeedFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read category seed: %w", err)
	}

	var seed categorySeed
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return fmt.Errorf("parse category seed: %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	for _, c := range seed.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if _, err := d.Exec(ctx, `INSERT OR IGNORE INTO service_categories (id, name, description, is_active, created_at) VALUES (?, ?, ?, 1, ?)`, uuid.NewString(), name, c.Description, now); err != nil {
			return fmt.Errorf("seed category %s: %w", name, err)
		}
	}

	return nil
}
