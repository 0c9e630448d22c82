package postgres

import "embed"

// MigrationsDir is the directory, relative to Migrations, that holds the
// goose SQL files.
const MigrationsDir = "migrations"

// Migrations holds the schema migrations compiled into the binary.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationTableName is the table goose records applied versions in.
const MigrationTableName = "schema_migrations"
