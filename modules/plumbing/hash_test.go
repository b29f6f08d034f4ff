// SPDX-License-Identifier: Apache-2.0

package plumbing

import "testing"

func TestNewHashEx(t *testing.T) {
	sha1hex := "356a192b7913b04c54574d18c28d46e6395428ab"[:40]
	h, err := NewHashEx(sha1hex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Algo() != SHA1 {
		t.Fatalf("expected sha1 algo, got %v", h.Algo())
	}
	if h.String() != sha1hex {
		t.Fatalf("round trip mismatch: got %s want %s", h.String(), sha1hex)
	}
}

func TestNewHashExInvalidLength(t *testing.T) {
	if _, err := NewHashEx("deadbeef"); err == nil {
		t.Fatal("expected error for short hex string")
	}
}

func TestHashIsZero(t *testing.T) {
	if !ZeroHash20.IsZero() {
		t.Fatal("expected ZeroHash20 to be zero")
	}
	h := NewHash("356a192b7913b04c54574d18c28d46e6395428ab")
	if h.IsZero() {
		t.Fatal("non-zero hash reported as zero")
	}
}

func TestHashesSort(t *testing.T) {
	a := NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := NewHash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	hs := []Hash{b, a}
	HashesSort(hs)
	if hs[0].String() != a.String() {
		t.Fatalf("expected sorted order, got %v", hs)
	}
}

func TestHasherSum(t *testing.T) {
	h := NewHasher(SHA1)
	_, _ = h.Write([]byte("blob 0\x00"))
	sum := h.Sum()
	if len(sum) != 20 {
		t.Fatalf("expected 20-byte sha1 sum, got %d", len(sum))
	}
}
