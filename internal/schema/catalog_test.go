// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T, versions ...Version) *Catalog {
	t.Helper()

	entries := make([]Entry, len(versions))
	for i, v := range versions {
		entries[i] = Entry{Version: v}
	}

	c, err := NewCatalog(entries...)
	require.NoError(t, err)
	return c
}

func TestNewCatalog(t *testing.T) {
	t.Run("rejects empty catalog", func(t *testing.T) {
		_, err := NewCatalog()
		require.Error(t, err)
	})

	t.Run("rejects duplicate pairs", func(t *testing.T) {
		_, err := NewCatalog(
			Entry{Version: V(1, 0)},
			Entry{Version: V(0, 1)},
			Entry{Version: V(1, 0)},
		)
		require.Error(t, err)
	})

	t.Run("rejects the unknown sentinel", func(t *testing.T) {
		_, err := NewCatalog(Entry{Version: Unknown})
		require.Error(t, err)
	})
}

func TestCatalogHead(t *testing.T) {
	c := testCatalog(t, V(2, 0), V(1, 0), V(0, 0))
	assert.Equal(t, V(2, 0), c.Head())
}

func TestCatalogContains(t *testing.T) {
	c := testCatalog(t, V(2, 0), V(1, 0), V(0, 0))

	assert.True(t, c.Contains(V(2, 0)))
	assert.True(t, c.Contains(V(0, 0)))
	assert.False(t, c.Contains(V(1, 5)))
	assert.False(t, c.Contains(Unknown))
}

func TestCatalogPendingFrom(t *testing.T) {
	c := testCatalog(t, V(2, 0), V(1, 0), V(0, 0))

	t.Run("from oldest returns all newer in application order", func(t *testing.T) {
		pending := c.PendingFrom(V(0, 0))
		require.Len(t, pending, 2)
		assert.Equal(t, V(1, 0), pending[0].Version)
		assert.Equal(t, V(2, 0), pending[1].Version)
	})

	t.Run("from middle returns strict suffix", func(t *testing.T) {
		pending := c.PendingFrom(V(1, 0))
		require.Len(t, pending, 1)
		assert.Equal(t, V(2, 0), pending[0].Version)
	})

	t.Run("from head returns empty", func(t *testing.T) {
		assert.Empty(t, c.PendingFrom(V(2, 0)))
	})
}

func TestCatalogVersions(t *testing.T) {
	c := testCatalog(t, V(2, 0), V(1, 0), V(0, 0))
	assert.Equal(t, []Version{V(2, 0), V(1, 0), V(0, 0)}, c.Versions())
}
