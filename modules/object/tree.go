// SPDX-License-Identifier: Apache-2.0

package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/plumbing/filemode"
)

// TreeEntry is one record of a Tree (§3.3): a name, a mode, and the OID of
// the referent (a Blob, a Tree, or a commit for a submodule gitlink).
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

func (e *TreeEntry) Type() ObjectType {
	switch {
	case e.Mode.IsDir():
		return TreeObject
	case e.Mode.IsSubmodule():
		return CommitObject
	default:
		return BlobObject
	}
}

func (e *TreeEntry) Equal(other *TreeEntry) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Name == other.Name && e.Mode == other.Mode && e.Hash.Equal(other.Hash)
}

// Tree is an immutable, name-ordered sequence of entries (§3.3).
type Tree struct {
	Entries []*TreeEntry
}

// FindEntry returns the entry with the given name, or nil.
func (t *Tree) FindEntry(name string) *TreeEntry {
	for _, e := range t.Entries {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// SubtreeOrder sorts tree entries the way `git mktree`/`git fsck` require:
// lexicographic byte order, with directory entries compared as though their
// name had a trailing "/" (so a directory "foo" compares as "foo/" and sorts
// after "foo-bar", while a regular file "foo" sorts before it). See
// git/git fsck.c for the rule this mirrors.
type SubtreeOrder []*TreeEntry

func (s SubtreeOrder) Len() int      { return len(s) }
func (s SubtreeOrder) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s SubtreeOrder) Less(i, j int) bool {
	return s.key(i) < s.key(j)
}

func (s SubtreeOrder) key(i int) string {
	if s[i].Mode.IsDir() {
		return s[i].Name + "/"
	}
	return s[i].Name
}

// Sort orders t's entries in place using SubtreeOrder.
func (t *Tree) Sort() {
	sort.Stable(SubtreeOrder(t.Entries))
}

// Encode produces the canonical Git tree object payload: for each entry (in
// SubtreeOrder), "<mode-octal-no-leading-zero> <name>\0<raw-hash-bytes>".
func (t *Tree) Encode() []byte {
	sorted := make([]*TreeEntry, len(t.Entries))
	copy(sorted, t.Entries)
	sort.Stable(SubtreeOrder(sorted))

	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%s %s\x00", strconv.FormatUint(uint64(e.Mode), 8), e.Name)
		buf.Write(e.Hash)
	}
	return buf.Bytes()
}

// DecodeTree parses a canonical tree object payload. hashSize distinguishes
// sha1 (20) from sha256 (32) repositories, since the wire format carries no
// explicit hash-length tag.
func DecodeTree(data []byte, hashSize int) (*Tree, error) {
	t := &Tree{}
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("object: malformed tree entry: missing mode separator")
		}
		mode, err := filemode.New(string(data[:sp]))
		if err != nil {
			return nil, err
		}
		data = data[sp+1:]
		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("object: malformed tree entry: missing name terminator")
		}
		name := string(data[:nul])
		data = data[nul+1:]
		if len(data) < hashSize {
			return nil, fmt.Errorf("object: malformed tree entry: truncated hash")
		}
		h := make(plumbing.Hash, hashSize)
		copy(h, data[:hashSize])
		data = data[hashSize:]
		t.Entries = append(t.Entries, &TreeEntry{Name: name, Mode: mode, Hash: h})
	}
	return t, nil
}
