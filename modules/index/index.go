// SPDX-License-Identifier: Apache-2.0

// Package index implements the staging-area data model (§3.6) and its
// on-disk binary encoding, modelled on the real Git index v2 format so
// that anything written here is readable by a compliant Git client.
package index

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/plumbing/filemode"
)

var (
	ErrEntryNotFound     = errors.New("index: entry not found")
	ErrUnsupportedVersion = errors.New("index: unsupported version")
)

var signature = [4]byte{'D', 'I', 'R', 'C'}

const supportedVersion = 2

// Stage identifies which side of a conflict an unmerged entry represents
// (§3.6): 0 is the resolved stage, 1/2/3 are base/ours/theirs.
type Stage uint8

const (
	Merged   Stage = 0
	AncestorStage Stage = 1
	OurStage      Stage = 2
	TheirStage    Stage = 3
)

// Entry is one record of the index: a path at a given stage (§3.6).
type Entry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
	Stage Stage

	// Stat-cache fields. Zero values are a valid "placeholder" per §4.4
	// when the working-tree file's hash could not be confirmed to match.
	Size             uint32
	CTimeSec, CTimeNs uint32
	MTimeSec, MTimeNs uint32
	Dev, Ino, UID, GID uint32
}

// Index is the ordered, flat path->entry mapping described in §3.6.
type Index struct {
	Version uint32
	Entries []*Entry
}

func New() *Index {
	return &Index{Version: supportedVersion}
}

// Get returns the stage-0 (resolved) entry for path, if any.
func (idx *Index) Get(path string) (*Entry, error) {
	path = filepath.ToSlash(path)
	for _, e := range idx.Entries {
		if e.Name == path && e.Stage == Merged {
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

// Unmerged returns every entry at a non-zero stage for path.
func (idx *Index) Unmerged(path string) []*Entry {
	path = filepath.ToSlash(path)
	var out []*Entry
	for _, e := range idx.Entries {
		if e.Name == path && e.Stage != Merged {
			out = append(out, e)
		}
	}
	return out
}

// HasUnmergedEntries reports whether any path in the index carries a
// non-zero stage - the orchestrator's UnmergedPaths pre-flight check (§4.6).
func (idx *Index) HasUnmergedEntries() bool {
	for _, e := range idx.Entries {
		if e.Stage != Merged {
			return true
		}
	}
	return false
}

// SetResolved replaces any entries at path with a single stage-0 entry,
// maintaining the §3.6 invariant that a resolved path has no stage-0
// duplicate and no stray unmerged stages.
func (idx *Index) SetResolved(e *Entry) {
	e.Stage = Merged
	idx.removePath(e.Name)
	idx.Entries = append(idx.Entries, e)
	idx.sort()
}

// SetConflict replaces any entries at path with the given unmerged stages,
// omitting any side that had no entry, per §4.4.
func (idx *Index) SetConflict(path string, base, ours, theirs *Entry) {
	idx.removePath(path)
	for stage, e := range map[Stage]*Entry{AncestorStage: base, OurStage: ours, TheirStage: theirs} {
		if e == nil {
			continue
		}
		cp := *e
		cp.Name = path
		cp.Stage = stage
		idx.Entries = append(idx.Entries, &cp)
	}
	idx.sort()
}

func (idx *Index) removePath(path string) {
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Name != path {
			kept = append(kept, e)
		}
	}
	idx.Entries = kept
}

func (idx *Index) sort() {
	sort.SliceStable(idx.Entries, func(i, j int) bool {
		if idx.Entries[i].Name != idx.Entries[j].Name {
			return idx.Entries[i].Name < idx.Entries[j].Name
		}
		return idx.Entries[i].Stage < idx.Entries[j].Stage
	})
}

// Encode writes the binary index v2 format: a DIRC header, each entry
// fixed-record followed by its NUL-padded name, and a trailing SHA-1
// checksum of everything written before it. The checksum algorithm is a
// wire-format requirement of the index file itself, independent of the
// repository's object hash algorithm, so it always uses crypto/sha1 here
// regardless of hashSize.
func (idx *Index) Encode(hashSize int) ([]byte, error) {
	idx.sort()
	var body bytes.Buffer
	body.Write(signature[:])
	writeU32(&body, supportedVersion)
	writeU32(&body, uint32(len(idx.Entries)))

	for _, e := range idx.Entries {
		if len(e.Hash) != hashSize {
			return nil, fmt.Errorf("index: entry %q has hash length %d, want %d", e.Name, len(e.Hash), hashSize)
		}
		start := body.Len()
		writeU32(&body, e.CTimeSec)
		writeU32(&body, e.CTimeNs)
		writeU32(&body, e.MTimeSec)
		writeU32(&body, e.MTimeNs)
		writeU32(&body, e.Dev)
		writeU32(&body, e.Ino)
		writeU32(&body, uint32(e.Mode))
		writeU32(&body, e.UID)
		writeU32(&body, e.GID)
		writeU32(&body, e.Size)
		body.Write(e.Hash)

		nameBytes := []byte(e.Name)
		flags := uint16(e.Stage&0x3) << 12
		nameLen := len(nameBytes)
		if nameLen >= 0xFFF {
			flags |= 0xFFF
		} else {
			flags |= uint16(nameLen)
		}
		writeU16(&body, flags)
		body.Write(nameBytes)

		// pad the whole record (fixed fields + name + at least one NUL) to
		// a multiple of 8 bytes, as real Git does.
		written := body.Len() - start
		pad := 8 - (written % 8)
		if pad == 0 {
			pad = 8
		}
		body.Write(make([]byte, pad))
	}

	sum := sha1.Sum(body.Bytes())
	body.Write(sum[:])
	return body.Bytes(), nil
}

// Decode parses a binary index v2 file produced by Encode (or real Git).
func Decode(data []byte, hashSize int) (*Index, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], signature[:]) {
		return nil, fmt.Errorf("index: bad signature")
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != supportedVersion {
		return nil, ErrUnsupportedVersion
	}
	count := binary.BigEndian.Uint32(data[8:12])
	idx := &Index{Version: version}
	off := 12
	for i := uint32(0); i < count; i++ {
		start := off
		e := &Entry{}
		e.CTimeSec = binary.BigEndian.Uint32(data[off:])
		off += 4
		e.CTimeNs = binary.BigEndian.Uint32(data[off:])
		off += 4
		e.MTimeSec = binary.BigEndian.Uint32(data[off:])
		off += 4
		e.MTimeNs = binary.BigEndian.Uint32(data[off:])
		off += 4
		e.Dev = binary.BigEndian.Uint32(data[off:])
		off += 4
		e.Ino = binary.BigEndian.Uint32(data[off:])
		off += 4
		e.Mode = filemode.FileMode(binary.BigEndian.Uint32(data[off:]))
		off += 4
		e.UID = binary.BigEndian.Uint32(data[off:])
		off += 4
		e.GID = binary.BigEndian.Uint32(data[off:])
		off += 4
		e.Size = binary.BigEndian.Uint32(data[off:])
		off += 4

		h := make(plumbing.Hash, hashSize)
		copy(h, data[off:off+hashSize])
		e.Hash = h
		off += hashSize

		flags := binary.BigEndian.Uint16(data[off:])
		off += 2
		e.Stage = Stage((flags >> 12) & 0x3)
		nameLen := int(flags & 0xFFF)

		var name []byte
		if nameLen < 0xFFF {
			name = data[off : off+nameLen]
			off += nameLen
		} else {
			nul := bytes.IndexByte(data[off:], 0)
			name = data[off : off+nul]
			off += nul
		}
		e.Name = string(name)

		written := off - start
		pad := 8 - (written % 8)
		if pad == 0 {
			pad = 8
		}
		off += pad

		idx.Entries = append(idx.Entries, e)
	}
	return idx, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
