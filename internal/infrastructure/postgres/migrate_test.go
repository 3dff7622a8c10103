package postgres

import (
	"io/fs"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_NombresVersionados(t *testing.T) {
	names, err := fs.Glob(Migrations(), "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	pattern := regexp.MustCompile(`^\d{3}_[a-z0-9_]+\.sql$`)
	for _, name := range names {
		assert.Regexp(t, pattern, name)
	}
	assert.Equal(t, "001_esquema_inicial.sql", names[0])
}

func TestMigrations_EsquemaInicialTieneRestricciones(t *testing.T) {
	raw, err := fs.ReadFile(Migrations(), "001_esquema_inicial.sql")
	require.NoError(t, err)
	sql := string(raw)

	assert.Contains(t, sql, "CHECK (stock_actual >= 0)")
	assert.Contains(t, sql, "ON DELETE RESTRICT")
	assert.Contains(t, sql, "---- create above / drop below ----")
	assert.NotContains(t, sql, "{{", "tern interpreta las migraciones como plantillas")
}
