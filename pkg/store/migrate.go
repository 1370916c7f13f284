package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations
var migrationFS embed.FS

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at DOUBLE PRECISION NOT NULL
)`

// Migrations returns the embedded migrations for a dialect, ordered by version.
func Migrations(d Dialect) ([]Migration, error) {
	dir := path.Join("migrations", d.String())
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("store: read migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		file := entry.Name()
		base, direction, ok := splitMigrationName(file)
		if !ok {
			continue
		}
		num, name, _ := strings.Cut(base, "_")
		version, err := strconv.Atoi(num)
		if err != nil {
			return nil, fmt.Errorf("store: bad migration file %q: %w", file, err)
		}
		body, err := fs.ReadFile(migrationFS, path.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("store: read migration %q: %w", file, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if direction == "up" {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("store: migration %d is missing its up or down file", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func splitMigrationName(file string) (base, direction string, ok bool) {
	switch {
	case strings.HasSuffix(file, ".up.sql"):
		return strings.TrimSuffix(file, ".up.sql"), "up", true
	case strings.HasSuffix(file, ".down.sql"):
		return strings.TrimSuffix(file, ".down.sql"), "down", true
	}
	return "", "", false
}

// splitStatements splits a migration body on semicolons that end a line.
func splitStatements(body string) []string {
	var stmts []string
	var cur strings.Builder
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.TrimSuffix(strings.TrimSpace(cur.String()), ";"))
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}

// AppliedVersions returns the applied migration versions in ascending order.
func (s *Store) AppliedVersions(ctx context.Context) ([]int, error) {
	if _, err := s.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("store: create schema_migrations: %w", err)
	}
	var versions []int
	if err := s.db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations ORDER BY version`); err != nil {
		return nil, fmt.Errorf("store: list migrations: %w", err)
	}
	return versions, nil
}

// Migrate applies every pending migration, each in its own transaction,
// and returns the versions it applied.
func (s *Store) Migrate(ctx context.Context) ([]int, error) {
	migrations, err := Migrations(s.dialect)
	if err != nil {
		return nil, err
	}
	applied, err := s.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	var ran []int
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		if err := s.apply(ctx, m.Up, s.q(`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`), m.Version, m.Name, s.now()); err != nil {
			return ran, fmt.Errorf("store: migration %d_%s: %w", m.Version, m.Name, err)
		}
		s.logger.Info("migration applied", "version", m.Version, "name", m.Name)
		ran = append(ran, m.Version)
	}
	return ran, nil
}

// Rollback reverts the most recently applied migration and returns its
// version. It returns ErrNothingToRollback when none is applied.
func (s *Store) Rollback(ctx context.Context) (int, error) {
	applied, err := s.AppliedVersions(ctx)
	if err != nil {
		return 0, err
	}
	if len(applied) == 0 {
		return 0, ErrNothingToRollback
	}
	latest := applied[len(applied)-1]

	migrations, err := Migrations(s.dialect)
	if err != nil {
		return 0, err
	}
	for _, m := range migrations {
		if m.Version != latest {
			continue
		}
		if err := s.apply(ctx, m.Down, s.q(`DELETE FROM schema_migrations WHERE version = ?`), m.Version); err != nil {
			return 0, fmt.Errorf("store: rollback %d_%s: %w", m.Version, m.Name, err)
		}
		s.logger.Info("migration rolled back", "version", m.Version, "name", m.Name)
		return latest, nil
	}
	return 0, fmt.Errorf("store: applied migration %d has no embedded file", latest)
}

// apply runs a migration body and its bookkeeping statement in one transaction.
func (s *Store) apply(ctx context.Context, body, record string, args ...any) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(body) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}
