// SPDX-License-Identifier: Apache-2.0

// Package object implements the three immutable object kinds the merge core
// reads and writes: blobs, trees and commits (§3.2-§3.4), encoded in the
// canonical Git wire format so that anything this module writes is readable
// by a compliant Git implementation with an identical OID (§8.2).
package object

// ObjectType is the closed enumeration of object kinds a tree entry or odb
// record can carry.
type ObjectType int8

const (
	InvalidObject ObjectType = iota
	BlobObject
	TreeObject
	CommitObject
	TagObject
)

func (t ObjectType) String() string {
	switch t {
	case BlobObject:
		return "blob"
	case TreeObject:
		return "tree"
	case CommitObject:
		return "commit"
	case TagObject:
		return "tag"
	default:
		return "invalid"
	}
}

func ParseObjectType(s string) ObjectType {
	switch s {
	case "blob":
		return BlobObject
	case "tree":
		return TreeObject
	case "commit":
		return CommitObject
	case "tag":
		return TagObject
	default:
		return InvalidObject
	}
}
