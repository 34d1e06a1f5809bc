// Package migrations holds the Postgres and ClickHouse schema and applies it
// in version order, recording applied versions in schema_migrations.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"

	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

const (
	DirPostgres   = "postgres"
	DirClickHouse = "clickhouse"
)

// Migration is one versioned schema file split into statements
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Target is a database that migrations can be applied to
type Target interface {
	Init(ctx context.Context) error
	Applied(ctx context.Context) (map[int]bool, error)
	Apply(ctx context.Context, m Migration) error
}

// Load reads the migrations of dir ordered by version
func Load(dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read migrations dir %s", dir)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, name, err := parseName(e.Name())
		if err != nil {
			return nil, err
		}
		body, err := files.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read migration %s", e.Name())
		}
		out = append(out, Migration{Version: version, Name: name, Statements: SplitStatements(string(body))})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, errors.Newf("duplicate migration version %d in %s", out[i].Version, dir)
		}
	}
	return out, nil
}

// Run applies every migration of dir not yet recorded by target.
// Returns the number applied.
func Run(ctx context.Context, dir string, target Target) (int, error) {
	log := logger.Get().With("component", "migrations", "dir", dir)

	migrations, err := Load(dir)
	if err != nil {
		return 0, err
	}
	if err := target.Init(ctx); err != nil {
		return 0, errors.Wrap(err, "create schema_migrations")
	}
	applied, err := target.Applied(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list applied migrations")
	}

	n := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := target.Apply(ctx, m); err != nil {
			return n, errors.Wrapf(err, "migration %d (%s) failed", m.Version, m.Name)
		}
		log.Infow("Migration applied", "version", m.Version, "name", m.Name)
		n++
	}
	return n, nil
}

// SplitStatements splits a file on semicolons that end a line, dropping
// comment-only lines and empty statements
func SplitStatements(body string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(cur.String()), ";")
			if stmt != "" {
				out = append(out, stmt)
			}
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

func parseName(file string) (int, string, error) {
	base := strings.TrimSuffix(file, ".sql")
	num, name, ok := strings.Cut(base, "_")
	if !ok {
		return 0, "", errors.Newf("migration %s: expected <version>_<name>.sql", file)
	}
	v, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", errors.Wrapf(err, "migration %s: bad version", file)
	}
	return v, name, nil
}

// PostgresTarget applies migrations in one transaction per file
type PostgresTarget struct {
	db *sqlx.DB
}

// NewPostgresTarget creates a Postgres migration target
func NewPostgresTarget(db *sqlx.DB) *PostgresTarget {
	return &PostgresTarget{db: db}
}

func (t *PostgresTarget) Init(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (t *PostgresTarget) Applied(ctx context.Context) (map[int]bool, error) {
	var versions []int
	if err := t.db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return nil, err
	}
	return toSet(versions), nil
}

func (t *PostgresTarget) Apply(ctx context.Context, m Migration) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	for i, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "statement %d", i+1)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name,
	); err != nil {
		return errors.Wrap(err, "record migration")
	}
	return tx.Commit()
}

// ClickHouseTarget applies migrations statement by statement; ClickHouse DDL is not transactional
type ClickHouseTarget struct {
	conn driver.Conn
}

// NewClickHouseTarget creates a ClickHouse migration target
func NewClickHouseTarget(conn driver.Conn) *ClickHouseTarget {
	return &ClickHouseTarget{conn: conn}
}

func (t *ClickHouseTarget) Init(ctx context.Context) error {
	return t.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    UInt32,
			name       String,
			applied_at DateTime DEFAULT now()
		) ENGINE = MergeTree() ORDER BY version`)
}

func (t *ClickHouseTarget) Applied(ctx context.Context) (map[int]bool, error) {
	var rows []struct {
		Version uint32 `ch:"version"`
	}
	if err := t.conn.Select(ctx, &rows, `SELECT version FROM schema_migrations`); err != nil {
		return nil, err
	}
	versions := make([]int, len(rows))
	for i, r := range rows {
		versions[i] = int(r.Version)
	}
	return toSet(versions), nil
}

func (t *ClickHouseTarget) Apply(ctx context.Context, m Migration) error {
	for i, stmt := range m.Statements {
		if err := t.conn.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "statement %d", i+1)
		}
	}
	return t.conn.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		uint32(m.Version), m.Name, time.Now().UTC(),
	)
}

func toSet(versions []int) map[int]bool {
	set := make(map[int]bool, len(versions))
	for _, v := range versions {
		set[v] = true
	}
	return set
}

// String describes a migration for logs
func (m Migration) String() string {
	return fmt.Sprintf("%04d_%s (%d statements)", m.Version, m.Name, len(m.Statements))
}
