package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every embedded migration in file-name order. Migrations are
// destructive (DROP & CREATE); intended for dev and CI databases.
func Migrate(ctx context.Context, dbx *sqlx.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		for i, stmt := range SplitStatements(string(raw)) {
			if _, err := dbx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec migration %s statement %d: %w", name, i+1, err)
			}
		}
	}
	return nil
}

// SplitStatements splits a migration file on statement terminators, dropping
// blanks. Statements must not contain literal semicolons.
func SplitStatements(script string) []string {
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
