// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
)

// fakeCommits is an in-memory CommitReader over a hand-built DAG, keyed by
// single-letter hash-like names for readability.
type fakeCommits struct {
	commits map[string]*object.Commit
	seq     int
}

func newFakeCommits() *fakeCommits { return &fakeCommits{commits: map[string]*object.Commit{}} }

func (f *fakeCommits) add(name string, parents ...string) plumbing.Hash {
	f.seq++
	h := nameHash(name)
	var parentHashes []plumbing.Hash
	for _, p := range parents {
		parentHashes = append(parentHashes, nameHash(p))
	}
	f.commits[h.String()] = &object.Commit{
		Parents:   parentHashes,
		Committer: object.Signature{When: time.Unix(int64(f.seq), 0).UTC()},
	}
	return h
}

func (f *fakeCommits) ReadCommit(h plumbing.Hash) (*object.Commit, error) {
	return f.commits[h.String()], nil
}

func nameHash(name string) plumbing.Hash {
	h := make(plumbing.Hash, 20)
	copy(h, name)
	return h
}

func TestMergeBaseLinearHistory(t *testing.T) {
	f := newFakeCommits()
	f.add("A")
	f.add("B", "A")
	f.add("C", "B") // ours
	f.add("D", "B") // theirs

	base := &Base{Reader: f}
	bases, err := base.MergeBases(nameHash("C"), nameHash("D"))
	require.NoError(t, err)
	require.Len(t, bases, 1)
	require.True(t, bases[0].Equal(nameHash("B")))
}

func TestMergeBaseDirectAncestor(t *testing.T) {
	f := newFakeCommits()
	f.add("A")
	f.add("B", "A")

	base := &Base{Reader: f}
	bases, err := base.MergeBases(nameHash("B"), nameHash("A"))
	require.NoError(t, err)
	require.Len(t, bases, 1)
	require.True(t, bases[0].Equal(nameHash("A")))
}

func TestMergeBaseCrissCross(t *testing.T) {
	f := newFakeCommits()
	f.add("A")
	f.add("B", "A")
	f.add("C", "A")
	f.add("D", "B", "C") // merge 1
	f.add("E", "B", "C") // merge 2 - criss cross with D

	base := &Base{Reader: f}
	bases, err := base.MergeBases(nameHash("D"), nameHash("E"))
	require.NoError(t, err)
	require.Len(t, bases, 2, "criss-cross history has two minimal common ancestors")
}

func TestIsAncestor(t *testing.T) {
	f := newFakeCommits()
	f.add("A")
	f.add("B", "A")
	f.add("C", "B")

	ok, err := IsAncestor(nameHash("A"), nameHash("C"), f)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsAncestor(nameHash("C"), nameHash("A"), f)
	require.NoError(t, err)
	require.False(t, ok)
}
