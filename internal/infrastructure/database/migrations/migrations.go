// Package migrations applies the embedded schema. Every statement is
// idempotent and valid on both PostgreSQL and SQLite.
package migrations

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schema string

func Statements() []string {
	var stmts []string
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Error().Err(err).Str("component", "Migrate").Int("statement", i).Msg("")
			return fmt.Errorf("applying statement %d: %w", i, err)
		}
	}

	log.Info().Str("component", "Migrate").Str("driver", db.DriverName()).Msg("schema is up to date")
	return nil
}
