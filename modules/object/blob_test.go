// SPDX-License-Identifier: Apache-2.0

package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobIsBinary(t *testing.T) {
	require.False(t, (&Blob{Data: []byte("plain text\nline two\n")}).IsBinary())
	require.True(t, (&Blob{Data: []byte("abc\x00def")}).IsBinary())
}

func TestBlobEncodeIsRawBytes(t *testing.T) {
	data := []byte("some content")
	b := &Blob{Data: data}
	require.Equal(t, data, b.Encode())
}
