package status

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRunLock(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "status")

	first, err := AcquireRunLock(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, LockFileName))

	_, err = AcquireRunLock(dir)
	require.ErrorIs(t, err, ErrRunInProgress)

	require.NoError(t, first.Release())

	second, err := AcquireRunLock(dir)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestRunLock_ReleaseNil(t *testing.T) {
	t.Parallel()

	var lock *RunLock
	assert.NoError(t, lock.Release())
}
