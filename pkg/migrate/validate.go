package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
)

var migrationNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

// ValidateDir checks the migrations stored in dir on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	_, err := ValidateFS(os.DirFS(dir))
	return err
}

// ValidateFS checks that every .sql file at the root of fsys is named
// YYYYMMDDHHMMSS_name.sql, that versions are unique and that each file
// carries both goose sections. It returns the number of migrations found.
func ValidateFS(fsys fs.FS) (int, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0, fmt.Errorf("list migrations: %w", err)
	}

	versions := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}

		match := migrationNameRe.FindStringSubmatch(name)
		if match == nil {
			return 0, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, dup := versions[match[1]]; dup {
			return 0, fmt.Errorf("migration version %s used by both %q and %q", match[1], prev, name)
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return 0, fmt.Errorf("read migration %q: %w", name, err)
		}
		for _, marker := range []string{upMarker, downMarker} {
			if !strings.Contains(string(body), marker) {
				return 0, fmt.Errorf("migration %q is missing %q", name, marker)
			}
		}
	}
	return len(versions), nil
}
