package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
)

// versionTable guarda la versión de esquema aplicada.
const versionTable = "schema_version"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations devuelve las migraciones embebidas (NNN_nombre.sql).
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate lleva el esquema a la última versión embebida. Las migraciones ya aplicadas se omiten.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("migración: adquirir conexión: %w", err)
	}
	defer conn.Release()

	m, err := migrate.NewMigrator(ctx, conn.Conn(), versionTable)
	if err != nil {
		return fmt.Errorf("migración: %w", err)
	}
	if err := m.LoadMigrations(Migrations()); err != nil {
		return fmt.Errorf("migración: cargar: %w", err)
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migración: aplicar: %w", err)
	}
	return nil
}

// SchemaVersion devuelve la versión registrada en la tabla de versiones.
func SchemaVersion(ctx context.Context, pool *pgxpool.Pool) (int32, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	m, err := migrate.NewMigrator(ctx, conn.Conn(), versionTable)
	if err != nil {
		return 0, err
	}
	return m.GetCurrentVersion(ctx)
}
