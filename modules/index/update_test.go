// SPDX-License-Identifier: Apache-2.0

package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcsforge/gitmerge/modules/merge"
	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/plumbing/filemode"
)

type fakeWalker struct {
	entries map[string]*object.TreeEntry
}

func (f *fakeWalker) Walk(root plumbing.Hash) (map[string]*object.TreeEntry, error) {
	return f.entries, nil
}

func TestUpdaterApplyStagesCleanEntries(t *testing.T) {
	walker := &fakeWalker{entries: map[string]*object.TreeEntry{
		"a.txt": {Name: "a.txt", Mode: filemode.Regular, Hash: hashWith(1)},
		"b.txt": {Name: "b.txt", Mode: filemode.Regular, Hash: hashWith(2)},
	}}
	u := &Updater{Walker: walker}
	idx := New()

	require.NoError(t, u.Apply(idx, hashWith(99), nil))
	require.False(t, idx.HasUnmergedEntries())

	e, err := idx.Get("a.txt")
	require.NoError(t, err)
	require.True(t, e.Hash.Equal(hashWith(1)))
}

func TestUpdaterApplySkipsConflictedPathsFromCleanSet(t *testing.T) {
	walker := &fakeWalker{entries: map[string]*object.TreeEntry{
		"a.txt": {Name: "a.txt", Mode: filemode.Regular, Hash: hashWith(1)},
		"c.txt": {Name: "c.txt", Mode: filemode.Regular, Hash: hashWith(3)},
	}}
	u := &Updater{Walker: walker}
	idx := New()

	conflicts := []merge.Conflict{{
		Path:   "c.txt",
		Kind:   merge.ContentConflict,
		Ours:   &object.TreeEntry{Mode: filemode.Regular, Hash: hashWith(10)},
		Theirs: &object.TreeEntry{Mode: filemode.Regular, Hash: hashWith(20)},
	}}
	require.NoError(t, u.Apply(idx, hashWith(99), conflicts))

	_, err := idx.Get("c.txt")
	require.Error(t, err, "a conflicted path never gets a stage-0 entry from the clean tree walk")
	require.True(t, idx.HasUnmergedEntries())
	require.Len(t, idx.Unmerged("c.txt"), 2)
}
