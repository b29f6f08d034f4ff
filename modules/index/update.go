// SPDX-License-Identifier: Apache-2.0

package index

import (
	"github.com/vcsforge/gitmerge/modules/merge"
	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
)

// TreeWalker lists the flattened path->entry contents of a merged tree, so
// the updater can stage every resolved path without re-deriving the
// recursion TreeMerger already performed.
type TreeWalker interface {
	Walk(root plumbing.Hash) (map[string]*object.TreeEntry, error)
}

// StatProbe reports whether the working copy's current file at path still
// hashes to the given OID, used to decide whether a real stat-cache can be
// populated or whether a zeroed placeholder must be written (§4.4).
type StatProbe interface {
	Matches(path string, oid plumbing.Hash) (bool, *Entry)
}

// Updater implements C4: translating a merged tree plus a conflicts list
// into an index state.
type Updater struct {
	Walker TreeWalker
	Stat   StatProbe
}

// Apply updates idx in place to reflect tree as the fully-resolved content,
// then overlays unmerged stages for every conflict (§4.4). It never mutates
// idx until the whole translation has succeeded, so a caller can discard
// the result on error without having observed a partial state.
func (u *Updater) Apply(idx *Index, tree plumbing.Hash, conflicts []merge.Conflict) error {
	entries, err := u.Walker.Walk(tree)
	if err != nil {
		return err
	}

	conflictPaths := make(map[string]merge.Conflict, len(conflicts))
	for _, c := range conflicts {
		conflictPaths[c.Path] = c
	}

	next := New()
	next.Version = idx.Version

	for path, te := range entries {
		if _, conflicted := conflictPaths[path]; conflicted {
			continue
		}
		e := &Entry{Name: path, Mode: te.Mode, Hash: te.Hash}
		if u.Stat != nil {
			if ok, cached := u.Stat.Matches(path, te.Hash); ok && cached != nil {
				e.Size, e.CTimeSec, e.CTimeNs, e.MTimeSec, e.MTimeNs, e.Dev, e.Ino, e.UID, e.GID =
					cached.Size, cached.CTimeSec, cached.CTimeNs, cached.MTimeSec, cached.MTimeNs, cached.Dev, cached.Ino, cached.UID, cached.GID
			}
		}
		next.SetResolved(e)
	}

	for _, c := range conflicts {
		var base, ours, theirs *Entry
		if c.Base != nil {
			base = &Entry{Name: c.Path, Mode: c.Base.Mode, Hash: c.Base.Hash}
		}
		if c.Ours != nil {
			ours = &Entry{Name: c.Path, Mode: c.Ours.Mode, Hash: c.Ours.Hash}
		}
		if c.Theirs != nil {
			theirs = &Entry{Name: c.Path, Mode: c.Theirs.Mode, Hash: c.Theirs.Hash}
		}
		next.SetConflict(c.Path, base, ours, theirs)
	}

	idx.Version = next.Version
	idx.Entries = next.Entries
	return nil
}
