// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeview/forgeview/internal/version"
)

func TestSQLiteRuntimeMeetsMinimum(t *testing.T) {
	// the compiled-in library must satisfy the same gate every command
	// passes through before opening the database
	require.NoError(t, checkSQLiteRuntime())
}

func TestSQLiteMinimumIsEnforced(t *testing.T) {
	err := version.CheckMinVersionRequirement("3.22.0", minSQLiteVersion)
	require.Error(t, err)
}

func TestBootstrapLockRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()

	lock, err := bootstrapLock(dir)
	require.NoError(t, err)
	defer func() { _ = lock.Unlock() }()

	_, err = bootstrapLock(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap lock")
}

func TestBootstrapLockReleasedCanBeRetaken(t *testing.T) {
	dir := t.TempDir()

	lock, err := bootstrapLock(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())

	lock, err = bootstrapLock(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
}
