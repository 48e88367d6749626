// Package migrations resolves the embedded connector schema for the
// database dialect the process runs against.
package migrations

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	connector "github.com/goliatone/go-salesforce-connector"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const migrationsDir = "data/sql/migrations"

// dialectDirs places each dialect under migrationsDir. Postgres files sit at
// the root of the tree.
var dialectDirs = map[string]string{
	DialectPostgres: ".",
	DialectSQLite:   "sqlite",
}

// Source is the migration set of one dialect.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
	Up      []string
}

// NormalizeDialect maps database driver names onto a dialect.
func NormalizeDialect(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("migrations: unsupported dialect %q", driver)
	}
}

// ForDialect resolves the migration set for dialect (a driver name is
// accepted too). A nil root reads the embedded tree.
func ForDialect(root fs.FS, dialect string) (Source, error) {
	dialect, err := NormalizeDialect(dialect)
	if err != nil {
		return Source{}, err
	}
	if root == nil {
		root = connector.GetMigrationsFS()
	}
	dir := path.Join(migrationsDir, dialectDirs[dialect])
	sub, err := fs.Sub(root, dir)
	if err != nil {
		return Source{}, fmt.Errorf("migrations: open %s: %w", dir, err)
	}
	up, err := fs.Glob(sub, "*.up.sql")
	if err != nil {
		return Source{}, fmt.Errorf("migrations: list %s: %w", dir, err)
	}
	if len(up) == 0 {
		return Source{}, fmt.Errorf("migrations: %s has no *.up.sql files", dir)
	}
	sort.Strings(up)
	for _, name := range up {
		down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(sub, down); err != nil {
			return Source{}, fmt.Errorf("migrations: %s is missing %s", dir, down)
		}
	}
	return Source{Dialect: dialect, Path: dir, FS: sub, Up: up}, nil
}

// Sources resolves every supported dialect, postgres first.
func Sources(root fs.FS) ([]Source, error) {
	out := make([]Source, 0, len(dialectDirs))
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		source, err := ForDialect(root, dialect)
		if err != nil {
			return nil, err
		}
		out = append(out, source)
	}
	return out, nil
}

// Register hands the embedded migrations for dialect to register, usually
// a persistence client's RegisterSQLMigrations.
func Register(dialect string, register func(fs.FS)) (Source, error) {
	if register == nil {
		return Source{}, fmt.Errorf("migrations: register function is required")
	}
	source, err := ForDialect(nil, dialect)
	if err != nil {
		return Source{}, err
	}
	register(source.FS)
	return source, nil
}
