// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeview/forgeview/pkg/fsx"
)

func TestReleasesCatalogShape(t *testing.T) {
	files := fsx.NewManager()
	catalog := Releases(t.TempDir(), t.TempDir(), files)

	assert.Equal(t, V(2, 6), catalog.Head())
	assert.True(t, catalog.Contains(V(0, 0)))
	assert.True(t, catalog.Contains(V(2, 3)))

	pending := catalog.PendingFrom(V(0, 0))
	require.NotEmpty(t, pending)
	assert.Equal(t, V(1, 0), pending[0].Version)
	assert.Equal(t, V(2, 6), pending[len(pending)-1].Version)
}

func TestReleasesScriptsFollowNamingConvention(t *testing.T) {
	scripts := Scripts()

	for _, name := range []string{"1_0.sql", "1_1.sql", "2_0.sql", "2_2.sql", "2_3.sql", "2_4.sql", "2_5.sql"} {
		payload, err := fs.ReadFile(scripts, name)
		require.NoError(t, err, "missing script %s", name)
		assert.NotEmpty(t, payload)
	}

	// 2.1 and 2.6 shipped without schema changes
	_, err := fs.ReadFile(scripts, "2_1.sql")
	require.Error(t, err)
	_, err = fs.ReadFile(scripts, "2_6.sql")
	require.Error(t, err)
}

func TestReleasesFullUpgradeFromScratch(t *testing.T) {
	dir := t.TempDir()
	files := fsx.NewManager()

	dataDir := filepath.Join(dir, "data")
	reposDir := filepath.Join(dir, "repos")
	require.NoError(t, files.CreateDirectory(dataDir, true))
	require.NoError(t, files.CreateDirectory(reposDir, true))

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, "forgeview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	catalog := Releases(dataDir, reposDir, files)
	store := NewStore(filepath.Join(dataDir, MarkerFileName), files)

	res := NewEngine(db, catalog, store, Scripts()).Run(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeUpgraded, res.Outcome)
	assert.Equal(t, V(2, 6), res.To)

	// the final schema has the 2.5 slug column
	_, err = db.Exec(`INSERT INTO user (login, email) VALUES ('alice', 'a@example.com')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO repository (owner_id, name, slug) VALUES (1, 'MyRepo', 'myrepo')`)
	require.NoError(t, err)

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, V(2, 6), got)

	// a second run is a no-op
	res = NewEngine(db, catalog, store, Scripts()).Run(context.Background())
	assert.Equal(t, OutcomeUpToDate, res.Outcome)
}

func TestRemoveLegacyRenderCache(t *testing.T) {
	dir := t.TempDir()
	files := fsx.NewManager()

	cacheDir := filepath.Join(dir, "cache", "render")
	require.NoError(t, files.CreateDirectory(cacheDir, true))
	require.NoError(t, files.WriteFile(filepath.Join(cacheDir, "readme.html"), []byte("<p/>")))

	act := removeLegacyRenderCache(dir, files)
	require.NoError(t, act(context.Background(), nil))

	_, exists, err := files.PathExists(cacheDir)
	require.NoError(t, err)
	assert.False(t, exists)

	// idempotent: a replayed run finds nothing to do
	require.NoError(t, act(context.Background(), nil))
}

func TestRewriteRepositoryConfigs(t *testing.T) {
	dir := t.TempDir()
	files := fsx.NewManager()

	repoDir := filepath.Join(dir, "alpha")
	require.NoError(t, files.CreateDirectory(repoDir, true))
	cfgPath := filepath.Join(repoDir, "forgeview.toml")
	require.NoError(t, files.WriteFile(cfgPath, []byte(
		"[storage]\nformat = \"\"\n\n[mirror]\nurl = \"https://example.com/alpha.git\"\n")))

	// a repo directory without the sidecar config is skipped
	require.NoError(t, files.CreateDirectory(filepath.Join(dir, "beta"), true))

	act := rewriteRepositoryConfigs(dir, files)
	require.NoError(t, act(context.Background(), nil))

	payload, err := files.ReadFile(cfgPath, -1)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `format = "bare-v2"`)
	// user keys in the sidecar survive the rewrite
	assert.Contains(t, string(payload), `url = "https://example.com/alpha.git"`)

	// replaying keeps the file stable
	require.NoError(t, act(context.Background(), nil))
	again, err := files.ReadFile(cfgPath, -1)
	require.NoError(t, err)
	assert.Equal(t, string(payload), string(again))
}

func TestRewriteRepositoryConfigsMissingStore(t *testing.T) {
	files := fsx.NewManager()
	act := rewriteRepositoryConfigs(filepath.Join(t.TempDir(), "absent"), files)
	require.NoError(t, act(context.Background(), nil))
}

func TestBackfillRepositorySlugs(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "forgeview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE repository (id INTEGER PRIMARY KEY, name TEXT NOT NULL, slug TEXT NOT NULL DEFAULT '')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO repository (name) VALUES ('My Repo'), ('other.repo')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO repository (name, slug) VALUES ('done', 'done')`)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)

	require.NoError(t, backfillRepositorySlugs()(context.Background(), tx))
	require.NoError(t, tx.Commit())

	var slug string
	require.NoError(t, db.QueryRow(`SELECT slug FROM repository WHERE name = 'My Repo'`).Scan(&slug))
	assert.Equal(t, "myrepo", slug)
	require.NoError(t, db.QueryRow(`SELECT slug FROM repository WHERE name = 'other.repo'`).Scan(&slug))
	assert.Equal(t, "otherrepo", slug)
	require.NoError(t, db.QueryRow(`SELECT slug FROM repository WHERE name = 'done'`).Scan(&slug))
	assert.Equal(t, "done", slug)
}
