// SPDX-License-Identifier: Apache-2.0

package refstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcsforge/gitmerge/modules/errs"
	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
)

func testHash(b byte) plumbing.Hash {
	h := make(plumbing.Hash, 20)
	h[19] = b
	return h
}

func TestWriteAndResolveHashRef(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	branch := plumbing.NewBranchReferenceName("main")

	require.NoError(t, s.WriteRef(ctx, branch, testHash(1), WriteOptions{}))

	got, err := s.ResolveRef(branch)
	require.NoError(t, err)
	require.True(t, got.Equal(testHash(1)))
}

func TestResolveRefFollowsSymbolicIndirection(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	branch := plumbing.NewBranchReferenceName("main")

	require.NoError(t, s.WriteRef(ctx, branch, testHash(2), WriteOptions{}))
	require.NoError(t, s.WriteSymbolicRef(ctx, plumbing.HEAD, branch))

	got, err := s.ResolveRef(plumbing.HEAD)
	require.NoError(t, err)
	require.True(t, got.Equal(testHash(2)))

	head, err := s.ReadRef(plumbing.HEAD)
	require.NoError(t, err)
	require.Equal(t, plumbing.SymbolicReference, head.Type())
}

func TestResolveRefDetectsCycle(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	a := plumbing.ReferenceName("refs/heads/a")
	b := plumbing.ReferenceName("refs/heads/b")

	require.NoError(t, s.WriteSymbolicRef(ctx, a, b))
	require.NoError(t, s.WriteSymbolicRef(ctx, b, a))

	_, err := s.ResolveRef(a)
	require.Error(t, err)
	require.Equal(t, errs.InvalidRef, errs.CodeOf(err))
}

func TestWriteRefCompareAndSet(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	branch := plumbing.NewBranchReferenceName("main")

	require.NoError(t, s.WriteRef(ctx, branch, testHash(1), WriteOptions{}))

	err := s.WriteRef(ctx, branch, testHash(2), WriteOptions{ExpectedOld: testHash(9)})
	require.Error(t, err)
	require.Equal(t, errs.InvalidRef, errs.CodeOf(err))

	got, _ := s.ResolveRef(branch)
	require.True(t, got.Equal(testHash(1)), "failed CAS must not change the ref")

	require.NoError(t, s.WriteRef(ctx, branch, testHash(2), WriteOptions{ExpectedOld: testHash(1)}))
	got, _ = s.ResolveRef(branch)
	require.True(t, got.Equal(testHash(2)))
}

func TestResolveMissingRef(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.ResolveRef(plumbing.NewBranchReferenceName("nope"))
	require.Error(t, err)
	require.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestWriteRefAppendsReflog(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	branch := plumbing.NewBranchReferenceName("main")
	who := object.Signature{Name: "a", Email: "a@b.c"}

	require.NoError(t, s.WriteRef(ctx, branch, testHash(1), WriteOptions{
		ReflogMessage: "commit: initial",
		Committer:     who,
	}))

	logPath := s.GitDir + "/logs/" + string(branch)
	require.FileExists(t, logPath)
}

func TestListRefs(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.WriteRef(ctx, plumbing.NewBranchReferenceName("main"), testHash(1), WriteOptions{}))
	require.NoError(t, s.WriteRef(ctx, plumbing.NewBranchReferenceName("feature"), testHash(2), WriteOptions{}))

	refs, err := s.ListRefs("refs/heads")
	require.NoError(t, err)
	require.Len(t, refs, 2)
}
