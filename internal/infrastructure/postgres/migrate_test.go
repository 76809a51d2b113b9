package postgres

import (
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamasafe/go-mamasafe/migrations"
)

func TestMigrations_EmbeddedSource(t *testing.T) {
	src, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	body, err := io.ReadAll(up)
	require.NoError(t, err)
	up.Close()
	for _, table := range []string{"audit_log", "outbox", "inbox"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table)
	}

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	body, err = io.ReadAll(down)
	require.NoError(t, err)
	down.Close()
	assert.Contains(t, string(body), "DROP TABLE IF EXISTS audit_log")
}

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	_, err := MigrateDown("postgres://unused", migrations.FS, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps must be greater than 0")
}
