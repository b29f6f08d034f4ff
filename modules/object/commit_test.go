// SPDX-License-Identifier: Apache-2.0

package object

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vcsforge/gitmerge/modules/plumbing"
)

func TestCommitEncodeDecodeRoundTrip(t *testing.T) {
	tz := time.FixedZone("", -5*3600)
	c := &Commit{
		TreeHash: make(plumbing.Hash, 20),
		Parents:  []plumbing.Hash{makeHash(1), makeHash(2)},
		Author:   Signature{Name: "A U Thor", Email: "a@example.com", When: time.Unix(1700000000, 0).In(tz)},
		Committer: Signature{Name: "C Omitter", Email: "c@example.com", When: time.Unix(1700000100, 0).In(tz)},
		Message:  "Merge branch 'theirs' into ours\n",
	}
	encoded := c.Encode()

	decoded, err := DecodeCommit(encoded, 20)
	require.NoError(t, err)
	require.Equal(t, c.TreeHash, decoded.TreeHash)
	require.Len(t, decoded.Parents, 2)
	require.Equal(t, c.Author.Name, decoded.Author.Name)
	require.Equal(t, c.Author.Email, decoded.Author.Email)
	require.Equal(t, c.Author.When.Unix(), decoded.Author.When.Unix())
	require.Equal(t, c.Message, decoded.Message)
	require.True(t, decoded.IsMerge())
}

func TestCommitDecodeRejectsWrongHashLength(t *testing.T) {
	c := &Commit{
		TreeHash:  make(plumbing.Hash, 20),
		Author:    Signature{Name: "a", Email: "a@b.c", When: time.Unix(1, 0).UTC()},
		Committer: Signature{Name: "a", Email: "a@b.c", When: time.Unix(1, 0).UTC()},
		Message:   "msg\n",
	}
	encoded := c.Encode()
	_, err := DecodeCommit(encoded, 32)
	require.Error(t, err)
}

func TestSignatureRoundTrip(t *testing.T) {
	tz := time.FixedZone("", 3*3600+30*60)
	sig := Signature{Name: "A B", Email: "x@y.z", When: time.Unix(1600000000, 0).In(tz)}
	decoded, err := DecodeSignature(sig.String())
	require.NoError(t, err)
	require.Equal(t, sig.Name, decoded.Name)
	require.Equal(t, sig.Email, decoded.Email)
	require.Equal(t, sig.When.Unix(), decoded.When.Unix())
}

func makeHash(b byte) plumbing.Hash {
	h := make(plumbing.Hash, 20)
	h[19] = b
	return h
}
