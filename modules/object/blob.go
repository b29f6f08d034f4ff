// SPDX-License-Identifier: Apache-2.0

package object

// Blob is an immutable byte sequence with no metadata of its own (§3.2).
type Blob struct {
	Data []byte
}

// Encode returns the canonical object payload for hashing/storage: the raw
// bytes, unmodified. The `"blob <len>\0"` framing is an odb/loose-object
// concern, not part of the in-memory object.
func (b *Blob) Encode() []byte {
	return b.Data
}

// IsBinary reports whether b contains a NUL byte anywhere in its content,
// the heuristic spec §4.1/§9 mandates for routing a blob away from
// line-oriented three-way merge and into a type-based conflict instead.
func (b *Blob) IsBinary() bool {
	for _, c := range b.Data {
		if c == 0 {
			return true
		}
	}
	return false
}
