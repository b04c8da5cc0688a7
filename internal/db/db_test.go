package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/openingtiers/internal/db"
)

func TestDriver(t *testing.T) {
	assert.Equal(t, "libsql", db.Driver("libsql://tiers.turso.io"))
	assert.Equal(t, "libsql", db.Driver("https://tiers.turso.io"))
	assert.Equal(t, "sqlite3", db.Driver("file:chess_openings.db"))
	assert.Equal(t, "sqlite3", db.Driver("/tmp/x.db"))
	assert.Equal(t, "sqlite3", db.Driver(":memory:"))
}

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tiers.db")

	d, err := db.Open(ctx, "file:"+path, "")
	require.NoError(t, err)

	v, err := d.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	for _, table := range []string{"openings", "opening_statistics", "tier_list_entries", "update_runs"} {
		var name string
		err := d.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
	require.NoError(t, d.Close())

	// Reopening is a no-op migration-wise.
	d, err = db.Open(ctx, "file:"+path, "")
	require.NoError(t, err)
	defer d.Close()
	v, err = d.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}
