// SPDX-License-Identifier: Apache-2.0

package plumbing

import (
	"errors"
	"strings"
)

const (
	ReferencePrefix = "refs/"
	refHeadPrefix   = ReferencePrefix + "heads/"
	refTagPrefix    = ReferencePrefix + "tags/"
	refRemotePrefix = ReferencePrefix + "remotes/"
	symrefPrefix    = "ref: "
)

// HEAD is the canonical current-branch pointer (§3.5).
const HEAD ReferenceName = "HEAD"

// MERGE_HEAD and MERGE_MSG are the well-known pseudo-refs/files a merge in
// progress is recorded under (§6.6).
const (
	MergeHeadFile = "MERGE_HEAD"
	MergeMsgFile  = "MERGE_MSG"
	OrigHeadFile  = "ORIG_HEAD"
)

var ErrReferenceNotFound = errors.New("git.plumbing: reference does not exist")

// ReferenceType distinguishes a hash reference from a symbolic one.
type ReferenceType int8

const (
	InvalidReference ReferenceType = iota
	HashReference
	SymbolicReference
)

// ReferenceName is a fully qualified ref name, e.g. "refs/heads/main".
type ReferenceName string

func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadPrefix + name)
}

func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName(refTagPrefix + name)
}

func NewRemoteReferenceName(remote, name string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/" + name)
}

func (r ReferenceName) IsBranch() bool { return strings.HasPrefix(string(r), refHeadPrefix) }
func (r ReferenceName) IsTag() bool    { return strings.HasPrefix(string(r), refTagPrefix) }
func (r ReferenceName) IsRemote() bool { return strings.HasPrefix(string(r), refRemotePrefix) }

func (r ReferenceName) BranchName() string {
	return strings.TrimPrefix(string(r), refHeadPrefix)
}

// Short returns the shortest conventional display form for a ref name.
func (r ReferenceName) Short() string {
	s := string(r)
	for _, prefix := range []string{refHeadPrefix, refTagPrefix, refRemotePrefix, ReferencePrefix} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimPrefix(s, prefix)
		}
	}
	return s
}

func (r ReferenceName) String() string { return string(r) }

// Reference is either a direct (hash) reference or a symbolic one pointing at
// another ReferenceName.
type Reference struct {
	name   ReferenceName
	typ    ReferenceType
	hash   Hash
	target ReferenceName
}

func NewHashReference(name ReferenceName, h Hash) *Reference {
	return &Reference{name: name, typ: HashReference, hash: h}
}

func NewSymbolicReference(name, target ReferenceName) *Reference {
	return &Reference{name: name, typ: SymbolicReference, target: target}
}

func (r *Reference) Name() ReferenceName { return r.name }
func (r *Reference) Type() ReferenceType { return r.typ }
func (r *Reference) Hash() Hash          { return r.hash }
func (r *Reference) Target() ReferenceName {
	return r.target
}

// Strings returns the encoded file content for this reference, matching the
// plain-text storage format under .git/refs and .git/HEAD.
func (r *Reference) Strings() string {
	if r.typ == SymbolicReference {
		return symrefPrefix + string(r.target) + "\n"
	}
	return r.hash.String() + "\n"
}
