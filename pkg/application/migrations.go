package application

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigrationManager collects the per-module embedded schemas and applies them
// with goose at startup. Modules register schemas in dependency order.
type MigrationManager interface {
	RegisterSchema(module string, schema *embed.FS)
	Run(ctx context.Context) error
}

func NewMigrationManager(pool *pgxpool.Pool) MigrationManager {
	return &migrationManager{pool: pool}
}

type moduleSchema struct {
	module string
	fs     *embed.FS
}

type migrationManager struct {
	pool    *pgxpool.Pool
	schemas []moduleSchema
}

func (m *migrationManager) RegisterSchema(module string, schema *embed.FS) {
	m.schemas = append(m.schemas, moduleSchema{module: module, fs: schema})
}

func (m *migrationManager) Run(ctx context.Context) error {
	if len(m.schemas) == 0 {
		return nil
	}

	db := stdlib.OpenDBFromPool(m.pool)
	defer func() { _ = db.Close() }()

	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	for _, schema := range m.schemas {
		dir, err := schemaRoot(schema.fs)
		if err != nil {
			return err
		}
		// Modules version their schemas independently, so each gets its own
		// goose bookkeeping table.
		goose.SetTableName(fmt.Sprintf("goose_db_version_%s", schema.module))
		goose.SetBaseFS(schema.fs)
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return fmt.Errorf("failed to apply %s migrations: %w", schema.module, err)
		}
	}
	goose.SetBaseFS(nil)
	goose.SetTableName("goose_db_version")
	return nil
}

// schemaRoot finds the deepest directory containing the embedded SQL files so
// modules can embed schemas under arbitrary prefixes.
func schemaRoot(schema *embed.FS) (string, error) {
	dir := "."
	for {
		entries, err := fs.ReadDir(schema, dir)
		if err != nil {
			return "", fmt.Errorf("failed to read embedded schema dir %s: %w", dir, err)
		}
		if len(entries) == 1 && entries[0].IsDir() {
			if dir == "." {
				dir = entries[0].Name()
			} else {
				dir = dir + "/" + entries[0].Name()
			}
			continue
		}
		return dir, nil
	}
}
