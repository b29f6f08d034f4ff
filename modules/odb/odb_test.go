// SPDX-License-Identifier: Apache-2.0

package odb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vcsforge/gitmerge/modules/errs"
	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/plumbing/filemode"
)

func TestLooseWriteReadBlobRoundTrip(t *testing.T) {
	l := New(t.TempDir(), plumbing.SHA1)

	h, err := l.WriteBlob(&object.Blob{Data: []byte("hello world\n")})
	require.NoError(t, err)
	require.True(t, l.HasObject(h))

	blob, err := l.ReadBlob(h)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world\n"), blob.Data)
}

func TestLooseWriteIsIdempotent(t *testing.T) {
	l := New(t.TempDir(), plumbing.SHA1)

	h1, err := l.WriteBlob(&object.Blob{Data: []byte("same content")})
	require.NoError(t, err)
	h2, err := l.WriteBlob(&object.Blob{Data: []byte("same content")})
	require.NoError(t, err)
	require.True(t, h1.Equal(h2))
}

func TestLooseReadObjectNotFound(t *testing.T) {
	l := New(t.TempDir(), plumbing.SHA1)
	_, _, err := l.ReadObject(make(plumbing.Hash, 20))
	require.Error(t, err)
	require.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestLooseTreeCommitRoundTrip(t *testing.T) {
	l := New(t.TempDir(), plumbing.SHA1)

	blobHash, err := l.WriteBlob(&object.Blob{Data: []byte("content\n")})
	require.NoError(t, err)

	tr := &object.Tree{Entries: []*object.TreeEntry{
		{Name: "f.txt", Mode: filemode.Regular, Hash: blobHash},
	}}
	treeHash, err := l.WriteTree(tr)
	require.NoError(t, err)

	when := time.Unix(1700000000, 0).UTC()
	c := &object.Commit{
		TreeHash:  treeHash,
		Author:    object.Signature{Name: "a", Email: "a@b.c", When: when},
		Committer: object.Signature{Name: "a", Email: "a@b.c", When: when},
		Message:   "initial\n",
	}
	commitHash, err := l.WriteCommit(c)
	require.NoError(t, err)

	gotTree, err := l.ReadTree(treeHash)
	require.NoError(t, err)
	require.Len(t, gotTree.Entries, 1)

	gotCommit, err := l.ReadCommit(commitHash)
	require.NoError(t, err)
	require.True(t, gotCommit.TreeHash.Equal(treeHash))
}

func TestLooseReadWrongType(t *testing.T) {
	l := New(t.TempDir(), plumbing.SHA1)
	h, err := l.WriteBlob(&object.Blob{Data: []byte("x")})
	require.NoError(t, err)
	_, err = l.ReadTree(h)
	require.Error(t, err)
}
