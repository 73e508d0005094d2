package userstore

import "embed"

// Migrations holds the goose migrations for the postgres directory. Apply
// them with pg.Migrate(ctx, db, Migrations, MigrationsDir, ...).
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the files.
const MigrationsDir = "migrations"
