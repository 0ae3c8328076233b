package instance

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
)

func TestPath_StablePerRoot(t *testing.T) {
	a := Path("/run/dropsort", "/home/me/Downloads")
	b := Path("/run/dropsort", "/home/me/Downloads/")
	c := Path("/run/dropsort", "/home/me/Desktop")

	assert.Equal(t, a, b, "trailing separators do not change the lock")
	assert.NotEqual(t, a, c)
	assert.Equal(t, "/run/dropsort", filepath.Dir(a))
	assert.Equal(t, ".lock", filepath.Ext(a))
}

func TestAcquire_SecondHolderIsRefused(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, "/downloads")
	require.NoError(t, err)
	defer first.Release() //nolint:errcheck // Test cleanup

	_, err = Acquire(dir, "/downloads")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyRunning))
	assert.Equal(t, 3, domainerrors.CodeOf(err).ExitCode())
}

func TestAcquire_DifferentRootsAreIndependent(t *testing.T) {
	dir := t.TempDir()

	a, err := Acquire(dir, "/downloads")
	require.NoError(t, err)
	defer a.Release() //nolint:errcheck // Test cleanup

	b, err := Acquire(dir, "/desktop")
	require.NoError(t, err)
	defer b.Release() //nolint:errcheck // Test cleanup

	assert.NotEqual(t, a.File(), b.File())
}

func TestRelease_AllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, "/downloads")
	require.NoError(t, err)
	require.NoError(t, first.Release())
	require.NoError(t, first.Release(), "release is idempotent")

	second, err := Acquire(dir, "/downloads")
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}

func TestAcquire_CreatesLockDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "locks")

	l, err := Acquire(dir, "/downloads")
	require.NoError(t, err)
	defer l.Release() //nolint:errcheck // Test cleanup

	assert.FileExists(t, l.File())
}
