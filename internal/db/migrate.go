package db

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Reviews and questions carry product_id without a foreign key: their pages
// can be stored in a run before or without the product they belong to.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS platforms (
		id    SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		url   TEXT NOT NULL,
		UNIQUE (title, url)
	)`,
	`CREATE TABLE IF NOT EXISTS brands (
		id    SERIAL PRIMARY KEY,
		title TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL DEFAULT '',
		subcategory1  TEXT NOT NULL DEFAULT '',
		subcategory2  TEXT NOT NULL DEFAULT '',
		price_regular INTEGER NOT NULL,
		price         INTEGER NOT NULL,
		url           TEXT NOT NULL DEFAULT '',
		status        INTEGER NOT NULL,
		brand_id      INTEGER REFERENCES brands(id),
		platform_id   INTEGER NOT NULL REFERENCES platforms(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand_id)`,
	`CREATE TABLE IF NOT EXISTS specs (
		id         SERIAL PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id),
		key        TEXT NOT NULL,
		value      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id         SERIAL PRIMARY KEY,
		product_id TEXT NOT NULL,
		rating     INTEGER NOT NULL,
		username   TEXT NOT NULL DEFAULT '',
		comment    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id         SERIAL PRIMARY KEY,
		product_id TEXT NOT NULL,
		username   TEXT NOT NULL DEFAULT '',
		question   TEXT NOT NULL DEFAULT '',
		answer     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_product ON questions(product_id)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id          TEXT PRIMARY KEY,
		platform    TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		accepted    INTEGER NOT NULL,
		dropped     INTEGER NOT NULL,
		unresolved  INTEGER NOT NULL,
		fatal       TEXT NOT NULL DEFAULT ''
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS platforms (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		url   TEXT NOT NULL,
		UNIQUE (title, url)
	)`,
	`CREATE TABLE IF NOT EXISTS brands (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL DEFAULT '',
		subcategory1  TEXT NOT NULL DEFAULT '',
		subcategory2  TEXT NOT NULL DEFAULT '',
		price_regular INTEGER NOT NULL,
		price         INTEGER NOT NULL,
		url           TEXT NOT NULL DEFAULT '',
		status        INTEGER NOT NULL,
		brand_id      INTEGER REFERENCES brands(id),
		platform_id   INTEGER NOT NULL REFERENCES platforms(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand_id)`,
	`CREATE TABLE IF NOT EXISTS specs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id TEXT NOT NULL REFERENCES products(id),
		key        TEXT NOT NULL,
		value      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id TEXT NOT NULL,
		rating     INTEGER NOT NULL,
		username   TEXT NOT NULL DEFAULT '',
		comment    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id TEXT NOT NULL,
		username   TEXT NOT NULL DEFAULT '',
		question   TEXT NOT NULL DEFAULT '',
		answer     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_product ON questions(product_id)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id          TEXT PRIMARY KEY,
		platform    TEXT NOT NULL,
		started_at  TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		accepted    INTEGER NOT NULL,
		dropped     INTEGER NOT NULL,
		unresolved  INTEGER NOT NULL,
		fatal       TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates the catalog schema for driver if it does not exist.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case DriverPostgres:
		stmts = postgresSchema
	case DriverSQLite:
		stmts = sqliteSchema
	default:
		return eris.Errorf("db: no schema for driver %q", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "db: migrate")
		}
	}
	zap.L().Info("db: schema ready", zap.String("driver", driver), zap.Int("statements", len(stmts)))
	return nil
}
