// SPDX-License-Identifier: Apache-2.0

// Package merge implements the recursive three-way tree merge (C2) and
// best-common-ancestor selection (C3) at the heart of the merge core.
package merge

import (
	"fmt"
	"sort"

	"github.com/vcsforge/gitmerge/modules/diff3"
	"github.com/vcsforge/gitmerge/modules/errs"
	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/plumbing/filemode"
)

// ObjectReader is the subset of the object database the tree merger reads
// from (§6.1, consumed).
type ObjectReader interface {
	ReadTree(h plumbing.Hash) (*object.Tree, error)
	ReadBlob(h plumbing.Hash) (*object.Blob, error)
}

// ObjectWriter is the subset of the object database the tree merger writes
// new blobs and trees to.
type ObjectWriter interface {
	WriteBlob(b *object.Blob) (plumbing.Hash, error)
	WriteTree(t *object.Tree) (plumbing.Hash, error)
}

// ConflictKind is the closed enumeration of conflict shapes (§3.7).
type ConflictKind string

const (
	ContentConflict      ConflictKind = "content"
	DeleteModifyConflict ConflictKind = "delete-modify"
	ModifyDeleteConflict ConflictKind = "modify-delete"
	AddAddConflict       ConflictKind = "add-add"
	TypeChangeConflict   ConflictKind = "type-change"
)

// Conflict records one unreconciled path (§3.7).
type Conflict struct {
	Path   string
	Kind   ConflictKind
	Base   *object.TreeEntry
	Ours   *object.TreeEntry
	Theirs *object.TreeEntry
}

// Driver is the optional merge-driver hook (§6.4): given the two side
// names, the path, and the three blob contents, it may produce a clean
// merge bypassing BlobMerger for that path.
type Driver func(ourName, theirName, path string, base, ours, theirs []byte) (clean bool, merged []byte, err error)

// TreeMergeOptions configures one TreeMerger.Merge call.
type TreeMergeOptions struct {
	OurName, TheirName string
	// PathDriver, when non-nil, is consulted before §4.1 blob merge for
	// every content conflict. Matches a path when MatchPath returns true
	// (defaulting to "match everything" if MatchPath is nil).
	PathDriver Driver
	MatchPath  func(path string) bool
}

// TreeMerger implements C2.
type TreeMerger struct {
	Reader   ObjectReader
	Writer   ObjectWriter
	HashSize int
}

// Result is the output of a (possibly recursive) tree merge.
type Result struct {
	TreeHash  plumbing.Hash
	Conflicts []Conflict
}

// Merge performs the recursive three-way tree merge described in §4.2.
// base may be nil when no base tree entry exists at this level (an initial
// merge, or rule 12's add/add case).
func (m *TreeMerger) Merge(base, ours, theirs *object.Tree, prefix string, opts TreeMergeOptions) (Result, error) {
	if opts.OurName == "" {
		opts.OurName = "ours"
	}
	if opts.TheirName == "" {
		opts.TheirName = "theirs"
	}

	names := unionNames(base, ours, theirs)
	var merged []*object.TreeEntry
	var conflicts []Conflict

	for _, name := range names {
		b := findEntry(base, name)
		o := findEntry(ours, name)
		t := findEntry(theirs, name)

		entry, cs, err := m.mergeEntry(b, o, t, joinPath(prefix, name), opts)
		if err != nil {
			return Result{}, err
		}
		if entry != nil {
			merged = append(merged, entry)
		}
		conflicts = append(conflicts, cs...)
	}

	tree := &object.Tree{Entries: merged}
	tree.Sort()
	h, err := m.Writer.WriteTree(tree)
	if err != nil {
		return Result{}, errs.Wrap(errs.NotFound, "git.mergeTree", "failed to write merged tree", err)
	}
	return Result{TreeHash: h, Conflicts: conflicts}, nil
}

// mergeEntry classifies and resolves a single (base, ours, theirs) entry
// triple per the 12-rule table in §4.2.
func (m *TreeMerger) mergeEntry(b, o, t *object.TreeEntry, path string, opts TreeMergeOptions) (*object.TreeEntry, []Conflict, error) {
	// rules 1 & 2: identical on both sides, or both absent.
	if equalEntry(o, t) {
		return o, nil, nil
	}

	// rules 3/6: b == o (ours made no change relative to base).
	if equalEntry(b, o) {
		if t == nil {
			return nil, nil, nil // rule 3: theirs deleted it
		}
		return t, nil, nil // rule 6: take theirs' change
	}

	// rules 4/7: b == t (theirs made no change relative to base).
	if equalEntry(b, t) {
		if o == nil {
			return nil, nil, nil // rule 4: ours deleted it
		}
		return o, nil, nil // rule 7: take ours' change
	}

	// added only by one side, no base entry at all.
	if b == nil && o == nil && t != nil {
		return t, nil, nil
	}
	if b == nil && t == nil && o != nil {
		return o, nil, nil
	}

	// rule 11: delete/modify, one side deleted while the other diverged
	// from the (non-nil) base.
	if o == nil && t != nil {
		return t, []Conflict{{Path: path, Kind: DeleteModifyConflict, Base: b, Ours: o, Theirs: t}}, nil
	}
	if t == nil && o != nil {
		return o, []Conflict{{Path: path, Kind: ModifyDeleteConflict, Base: b, Ours: o, Theirs: t}}, nil
	}

	// From here on, o and t are both present and both diverge from base.
	if o.Type() != t.Type() {
		// rule 8: type change.
		return o, []Conflict{{Path: path, Kind: TypeChangeConflict, Base: b, Ours: o, Theirs: t}}, nil
	}

	switch o.Type() {
	case object.TreeObject:
		// rule 9: recurse into subtrees.
		return m.mergeSubtree(b, o, t, path, opts)
	case object.BlobObject:
		// rules 10 & 12: three-way blob merge (base may be nil for add/add).
		return m.mergeBlobs(b, o, t, path, opts)
	default:
		return nil, nil, fmt.Errorf("git.mergeTree: unhandled object type at %q", path)
	}
}

func (m *TreeMerger) mergeSubtree(b, o, t *object.TreeEntry, path string, opts TreeMergeOptions) (*object.TreeEntry, []Conflict, error) {
	baseTree, err := m.readTreeOrEmpty(b)
	if err != nil {
		return nil, nil, err
	}
	oursTree, err := m.Reader.ReadTree(o.Hash)
	if err != nil {
		return nil, nil, errs.Wrap(errs.NotFound, "git.mergeTree", "read ours subtree", err)
	}
	theirsTree, err := m.Reader.ReadTree(t.Hash)
	if err != nil {
		return nil, nil, errs.Wrap(errs.NotFound, "git.mergeTree", "read theirs subtree", err)
	}

	res, err := m.Merge(baseTree, oursTree, theirsTree, path, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(res.TreeHash) == 0 || isEmptyTree(res.TreeHash, m.HashSize) {
		return nil, res.Conflicts, nil
	}
	mode := o.Mode
	return &object.TreeEntry{Name: o.Name, Mode: mode, Hash: res.TreeHash}, res.Conflicts, nil
}

func (m *TreeMerger) mergeBlobs(b, o, t *object.TreeEntry, path string, opts TreeMergeOptions) (*object.TreeEntry, []Conflict, error) {
	baseBlob, err := m.readBlobOrEmpty(b)
	if err != nil {
		return nil, nil, err
	}
	oursBlob, err := m.Reader.ReadBlob(o.Hash)
	if err != nil {
		return nil, nil, errs.Wrap(errs.NotFound, "git.mergeTree", "read ours blob", err)
	}
	theirsBlob, err := m.Reader.ReadBlob(t.Hash)
	if err != nil {
		return nil, nil, errs.Wrap(errs.NotFound, "git.mergeTree", "read theirs blob", err)
	}

	mode, modeConflict := reconcileMode(b, o, t)

	if oursBlob.IsBinary() || theirsBlob.IsBinary() || baseBlob.IsBinary() {
		// §9: binary content is not attempted as a line merge; it is
		// recorded as a content conflict and ours' blob is kept unchanged,
		// with no marker block written.
		conflict := Conflict{Path: path, Kind: ContentConflict, Base: b, Ours: o, Theirs: t}
		return o, []Conflict{conflict}, nil
	}

	if opts.PathDriver != nil && (opts.MatchPath == nil || opts.MatchPath(path)) {
		clean, merged, err := opts.PathDriver(opts.OurName, opts.TheirName, path, baseBlob.Data, oursBlob.Data, theirsBlob.Data)
		if err != nil {
			return nil, nil, err
		}
		if clean {
			h, err := m.Writer.WriteBlob(&object.Blob{Data: merged})
			if err != nil {
				return nil, nil, err
			}
			return &object.TreeEntry{Name: o.Name, Mode: mode, Hash: h}, conflictsFromMode(path, b, o, t, modeConflict), nil
		}
	}

	res := diff3.Merge(baseBlob.Data, oursBlob.Data, theirsBlob.Data, diff3.Options{OurName: opts.OurName, TheirName: opts.TheirName})
	h, err := m.Writer.WriteBlob(&object.Blob{Data: res.Merged})
	if err != nil {
		return nil, nil, err
	}
	entry := &object.TreeEntry{Name: o.Name, Mode: mode, Hash: h}

	kind := ContentConflict
	if b == nil {
		// rule 12: no base entry at all, both sides added divergent content.
		kind = AddAddConflict
	}
	var conflicts []Conflict
	if res.HasConflict {
		conflicts = append(conflicts, Conflict{Path: path, Kind: kind, Base: b, Ours: o, Theirs: t})
	}
	conflicts = append(conflicts, conflictsFromMode(path, b, o, t, modeConflict)...)
	return entry, conflicts, nil
}

func conflictsFromMode(path string, b, o, t *object.TreeEntry, modeConflict bool) []Conflict {
	if !modeConflict {
		return nil
	}
	return []Conflict{{Path: path, Kind: ContentConflict, Base: b, Ours: o, Theirs: t}}
}

// reconcileMode applies §4.2's mode-reconciliation rule.
func reconcileMode(b, o, t *object.TreeEntry) (filemode.FileMode, bool) {
	if o.Mode == t.Mode {
		return o.Mode, false
	}
	if b != nil && o.Mode == b.Mode {
		return t.Mode, false
	}
	if b != nil && t.Mode == b.Mode {
		return o.Mode, false
	}
	return o.Mode, true
}

func (m *TreeMerger) readTreeOrEmpty(e *object.TreeEntry) (*object.Tree, error) {
	if e == nil {
		return &object.Tree{}, nil
	}
	tr, err := m.Reader.ReadTree(e.Hash)
	if err != nil {
		return nil, errs.Wrap(errs.NotFound, "git.mergeTree", "read base subtree", err)
	}
	return tr, nil
}

func (m *TreeMerger) readBlobOrEmpty(e *object.TreeEntry) (*object.Blob, error) {
	if e == nil {
		return &object.Blob{}, nil
	}
	bl, err := m.Reader.ReadBlob(e.Hash)
	if err != nil {
		return nil, errs.Wrap(errs.NotFound, "git.mergeTree", "read base blob", err)
	}
	return bl, nil
}

func isEmptyTree(h plumbing.Hash, hashSize int) bool {
	return h.Equal(EmptyTreeHash(hashSize))
}

// EmptyTreeHash returns the well-known OID of the empty tree for the given
// hash size (§4.2).
func EmptyTreeHash(hashSize int) plumbing.Hash {
	if hashSize == 32 {
		return plumbing.NewHash("6ef19b41225c5369f1c104d45d8d85efa9b057b53b14b4b9b939dd74decc5321")
	}
	return plumbing.NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904")
}

func equalEntry(a, b *object.TreeEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Mode == b.Mode && a.Hash.Equal(b.Hash)
}

func findEntry(tr *object.Tree, name string) *object.TreeEntry {
	if tr == nil {
		return nil
	}
	return tr.FindEntry(name)
}

func unionNames(trees ...*object.Tree) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, tr := range trees {
		if tr == nil {
			continue
		}
		for _, e := range tr.Entries {
			if _, ok := seen[e.Name]; !ok {
				seen[e.Name] = struct{}{}
				names = append(names, e.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
