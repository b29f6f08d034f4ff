// SPDX-License-Identifier: Apache-2.0

package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/plumbing/filemode"
)

func TestTreeEncodeDecodeRoundTrip(t *testing.T) {
	tr := &Tree{Entries: []*TreeEntry{
		{Name: "foo-bar", Mode: filemode.Regular, Hash: make(plumbing.Hash, 20)},
		{Name: "foo", Mode: filemode.Dir, Hash: make(plumbing.Hash, 20)},
		{Name: "zeta.txt", Mode: filemode.Executable, Hash: make(plumbing.Hash, 20)},
	}}
	encoded := tr.Encode()

	decoded, err := DecodeTree(encoded, 20)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 3)
	require.Equal(t, encoded, decoded.Encode())
}

func TestTreeSubtreeOrderTrailingSlash(t *testing.T) {
	tr := &Tree{Entries: []*TreeEntry{
		{Name: "foo-bar", Mode: filemode.Regular, Hash: make(plumbing.Hash, 20)},
		{Name: "foo", Mode: filemode.Dir, Hash: make(plumbing.Hash, 20)},
	}}
	tr.Sort()
	// the directory entry compares as "foo/"; '-' (0x2D) sorts before '/'
	// (0x2F), so "foo-bar" comes first.
	require.Equal(t, "foo-bar", tr.Entries[0].Name)
	require.Equal(t, "foo", tr.Entries[1].Name)
}

func TestTreeFindEntry(t *testing.T) {
	h := make(plumbing.Hash, 20)
	h[0] = 0xAB
	tr := &Tree{Entries: []*TreeEntry{{Name: "a.txt", Mode: filemode.Regular, Hash: h}}}
	require.NotNil(t, tr.FindEntry("a.txt"))
	require.Nil(t, tr.FindEntry("missing"))
}
