// SPDX-License-Identifier: Apache-2.0

package filemode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewParsesOctal(t *testing.T) {
	m, err := New("100644")
	require.NoError(t, err)
	require.Equal(t, Regular, m)
	require.Equal(t, "100644", m.String())
}

func TestNewRejectsNonOctal(t *testing.T) {
	_, err := New("not-a-mode")
	require.Error(t, err)
}

func TestClassification(t *testing.T) {
	require.True(t, Dir.IsDir())
	require.True(t, Regular.IsRegular())
	require.True(t, Deprecated.IsRegular())
	require.True(t, Executable.IsExecutable())
	require.True(t, Symlink.IsSymlink())
	require.True(t, Submodule.IsSubmodule())
	require.False(t, Regular.IsMalformed())
	require.True(t, FileMode(0000111).IsMalformed())
}

func TestToOSFileMode(t *testing.T) {
	m, err := Executable.ToOSFileMode()
	require.NoError(t, err)
	require.Equal(t, uint32(0755), uint32(m))

	_, err = FileMode(0000111).ToOSFileMode()
	require.Error(t, err)
}
