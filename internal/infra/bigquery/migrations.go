package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/reckless-spender/internal/logger"
)

const migrationsTable = "schema_migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Pattern to match migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is one versioned DDL file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// LoadMigrations reads NNNN_name.sql files from the root of fsys, fills in
// the dataset placeholders and sorts them by version. The checksum is taken
// before substitution so it does not depend on the target dataset.
func LoadMigrations(fsys fs.FS, ds Dataset) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("LoadMigrations: reading directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		version, _ := strconv.Atoi(matches[1])
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("LoadMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("LoadMigrations: reading %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", ds.Project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", ds.Name)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Pending returns the migrations whose version is not in applied.
func Pending(all []Migration, applied map[int]bool) []Migration {
	var out []Migration
	for _, m := range all {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// Migrate creates the tables this store needs, applying each embedded
// migration once. It returns the migrations it applied.
func (s *Store) Migrate(ctx context.Context, appliedBy string) ([]Migration, error) {
	log := logger.FromContext(ctx)

	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}
	all, err := LoadMigrations(sub, s.ds)
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}

	if _, err := runDML(ctx, s.client.Query(`
		CREATE TABLE IF NOT EXISTS `+s.ds.Table(migrationsTable)+` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)`)); err != nil {
		return nil, fmt.Errorf("Migrate: creating %s: %w", migrationsTable, err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}

	pending := Pending(all, applied)
	for _, m := range pending {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applying migration")

		if _, err := runDML(ctx, s.client.Query(m.SQL)); err != nil {
			return nil, fmt.Errorf("Migrate: executing %s: %w", m.Filename, err)
		}

		q := s.client.Query(`
			INSERT INTO ` + s.ds.Table(migrationsTable) + `
			(version, name, applied_at, checksum, applied_by)
			VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)`)
		q.Parameters = []bigquery.QueryParameter{
			{Name: "version", Value: m.Version},
			{Name: "name", Value: m.Name},
			{Name: "checksum", Value: m.Checksum},
			{Name: "applied_by", Value: appliedBy},
		}
		if _, err := runDML(ctx, q); err != nil {
			return nil, fmt.Errorf("Migrate: recording %s: %w", m.Filename, err)
		}
	}

	return pending, nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[int]bool, error) {
	it, err := s.client.Query(`SELECT version FROM ` + s.ds.Table(migrationsTable)).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]bool)
	for {
		var row struct {
			Version int64 `bigquery:"version"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}
		applied[int(row.Version)] = true
	}
	return applied, nil
}
