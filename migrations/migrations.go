// Package migrations embeds the SQL schema files and applies them in name order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed *.sql
var files embed.FS

// Names returns the embedded migration file names in the order Apply runs them.
func Names() ([]string, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Apply executes every embedded migration. The files are written to be re-runnable.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	names, err := Names()
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, name := range names {
		sqlText, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sqlText)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		logger.Info("migration applied", zap.String("file", name))
	}
	return nil
}
