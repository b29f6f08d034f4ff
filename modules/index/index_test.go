// SPDX-License-Identifier: Apache-2.0

package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/plumbing/filemode"
)

func hashWith(b byte) plumbing.Hash {
	h := make(plumbing.Hash, 20)
	h[19] = b
	return h
}

func TestIndexEncodeDecodeRoundTrip(t *testing.T) {
	idx := New()
	idx.SetResolved(&Entry{Name: "b.txt", Mode: filemode.Regular, Hash: hashWith(2), Size: 10})
	idx.SetResolved(&Entry{Name: "a.txt", Mode: filemode.Regular, Hash: hashWith(1), Size: 5})

	data, err := idx.Encode(20)
	require.NoError(t, err)

	decoded, err := Decode(data, 20)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 2)
	require.Equal(t, "a.txt", decoded.Entries[0].Name, "entries sort by name")
	require.Equal(t, "b.txt", decoded.Entries[1].Name)
	require.True(t, decoded.Entries[0].Hash.Equal(hashWith(1)))
}

func TestIndexSetResolvedReplacesPriorEntry(t *testing.T) {
	idx := New()
	idx.SetResolved(&Entry{Name: "a.txt", Mode: filemode.Regular, Hash: hashWith(1)})
	idx.SetResolved(&Entry{Name: "a.txt", Mode: filemode.Regular, Hash: hashWith(2)})

	e, err := idx.Get("a.txt")
	require.NoError(t, err)
	require.True(t, e.Hash.Equal(hashWith(2)))
	require.Len(t, idx.Entries, 1)
}

func TestIndexSetConflictOmitsMissingSides(t *testing.T) {
	idx := New()
	ours := &Entry{Mode: filemode.Regular, Hash: hashWith(1)}
	theirs := &Entry{Mode: filemode.Regular, Hash: hashWith(2)}
	idx.SetConflict("c.txt", nil, ours, theirs)

	require.True(t, idx.HasUnmergedEntries())
	unmerged := idx.Unmerged("c.txt")
	require.Len(t, unmerged, 2)

	_, err := idx.Get("c.txt")
	require.Error(t, err, "a conflicted path has no stage-0 entry")
}

func TestIndexSetConflictThenResolve(t *testing.T) {
	idx := New()
	idx.SetConflict("c.txt", &Entry{Hash: hashWith(0)}, &Entry{Hash: hashWith(1)}, &Entry{Hash: hashWith(2)})
	require.True(t, idx.HasUnmergedEntries())

	idx.SetResolved(&Entry{Name: "c.txt", Mode: filemode.Regular, Hash: hashWith(3)})
	require.False(t, idx.HasUnmergedEntries())
	require.Len(t, idx.Unmerged("c.txt"), 0)
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	_, err := Decode([]byte("not an index file at all"), 20)
	require.Error(t, err)
}
