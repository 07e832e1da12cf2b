// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderCacheDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "forgeview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE render_cache (
			repository_id INTEGER NOT NULL,
			path TEXT NOT NULL,
			rendered TEXT NOT NULL,
			rendered_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (repository_id, path)
		);`)
	require.NoError(t, err)

	return db
}

func countCacheRows(t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM render_cache`).Scan(&n))
	return n
}

func TestRenderCachePluginInit(t *testing.T) {
	db := renderCacheDB(t)

	p := NewRenderCachePlugin(db, time.Hour)
	assert.NoError(t, p.Init(context.Background()))
}

func TestRenderCachePluginInitRejectsMissingTable(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	p := NewRenderCachePlugin(db, time.Hour)
	assert.Error(t, p.Init(context.Background()))
}

func TestRenderCachePluginInitRejectsNonPositiveTTL(t *testing.T) {
	p := NewRenderCachePlugin(renderCacheDB(t), 0)
	assert.Error(t, p.Init(context.Background()))
}

func TestRenderCachePluginRefreshPrunesStaleRows(t *testing.T) {
	db := renderCacheDB(t)

	_, err := db.Exec(`
		INSERT INTO render_cache (repository_id, path, rendered, rendered_at) VALUES
			(1, 'README.md', '<p>stale</p>', datetime('now', '-2 hours')),
			(1, 'docs/guide.md', '<p>fresh</p>', datetime('now'));`)
	require.NoError(t, err)

	p := NewRenderCachePlugin(db, time.Hour)
	require.NoError(t, p.Refresh(context.Background()))

	assert.Equal(t, 1, countCacheRows(t, db))

	var path string
	require.NoError(t, db.QueryRow(`SELECT path FROM render_cache`).Scan(&path))
	assert.Equal(t, "docs/guide.md", path)
}

func TestRenderCachePluginRefreshIsIdempotent(t *testing.T) {
	db := renderCacheDB(t)

	p := NewRenderCachePlugin(db, time.Hour)
	require.NoError(t, p.Refresh(context.Background()))
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, 0, countCacheRows(t, db))
}
