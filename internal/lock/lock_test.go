package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockSucceedsOnce(t *testing.T) {
	dir := t.TempDir()
	l1 := New(dir)
	ok, err := l1.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	defer l1.Unlock()

	l2 := New(dir)
	ok2, err := l2.TryLock()
	require.NoError(t, err)
	assert.False(t, ok2)
}

func TestUnlockAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	l1 := New(dir)
	ok, err := l1.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l1.Unlock())

	l2 := New(dir)
	ok2, err := l2.TryLock()
	require.NoError(t, err)
	assert.True(t, ok2)
	_ = l2.Unlock()
}
