// SPDX-License-Identifier: Apache-2.0

package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vcsforge/gitmerge/modules/errs"
)

func TestAcquireCommitWritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "HEAD")

	l, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	require.NoFileExists(t, path)

	require.NoError(t, l.Commit([]byte("deadbeef\n")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "deadbeef\n", string(data))
	require.NoFileExists(t, path+".lock")
}

func TestAcquireTimesOutWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")

	first, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer first.Rollback()

	_, err = Acquire(context.Background(), path, 20*time.Millisecond)
	require.Error(t, err)
	require.Equal(t, errs.LockContention, errs.CodeOf(err))
}

func TestRollbackRemovesLockFileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	l, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)

	require.NoError(t, l.Rollback())
	require.NoFileExists(t, path+".lock")
	require.NoFileExists(t, path)
}
