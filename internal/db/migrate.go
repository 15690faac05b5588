package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is bumped whenever schema.sql changes shape.
const SchemaVersion = 1

// Migrate applies schema.sql and records SchemaVersion. Every statement is
// idempotent, so running it against an up-to-date database is a no-op.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent migrators (several replicas starting at once).
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('craftorcrap_schema'))`); err != nil {
		return fmt.Errorf("lock schema: %w", err)
	}

	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO schema_version (version) VALUES ($1)
		ON CONFLICT (version) DO NOTHING`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	if tag.RowsAffected() > 0 {
		log.Info().Int("version", SchemaVersion).Msg("schema migrated")
	}
	return nil
}
