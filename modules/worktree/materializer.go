// SPDX-License-Identifier: Apache-2.0

// Package worktree implements WorktreeMaterializer (C5): writing a merged
// tree (and any conflict-marker content) out to the working copy.
package worktree

import (
	"os"
	"path"

	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/vcsforge/gitmerge/modules/merge"
	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/plumbing/filemode"
)

// ObjectReader is the subset of the object database the materializer reads
// blob content from.
type ObjectReader interface {
	ReadBlob(h plumbing.Hash) (*object.Blob, error)
}

// Diff is a single changed path between the old and merged trees.
type Diff struct {
	Path       string
	OldEntry   *object.TreeEntry // nil if added
	NewEntry   *object.TreeEntry // nil if deleted
}

// Materializer implements C5 against a billy.Filesystem, matching the
// pluggable filesystem-adapter contract of §6.3 (osfs in production,
// memfs in tests).
type Materializer struct {
	FS     billy.Filesystem
	Reader ObjectReader
}

// Options configures one materialization pass.
type Options struct {
	// AbortOnConflict, when true, writes nothing to the working tree if
	// any conflict is present (§4.5).
	AbortOnConflict bool
	// ConflictContent supplies the already-merged-with-markers bytes for
	// each conflicted path, keyed by path.
	ConflictContent map[string][]byte
}

// Apply writes or deletes every changed path and overlays conflict-marker
// content for conflicted paths. It returns the set of paths actually
// written, or nothing at all if AbortOnConflict fired.
func (m *Materializer) Apply(diffs []Diff, conflicts []merge.Conflict, opts Options) ([]string, error) {
	if opts.AbortOnConflict && len(conflicts) > 0 {
		return nil, nil
	}

	var written []string
	for _, d := range diffs {
		if d.NewEntry == nil {
			if err := m.remove(d.Path); err != nil {
				return written, err
			}
			continue
		}
		content, err := m.contentFor(d.Path, d.NewEntry, opts)
		if err != nil {
			return written, err
		}
		if err := m.write(d.Path, d.NewEntry.Mode, content); err != nil {
			return written, err
		}
		written = append(written, d.Path)
	}
	return written, nil
}

func (m *Materializer) contentFor(path string, entry *object.TreeEntry, opts Options) ([]byte, error) {
	if c, ok := opts.ConflictContent[path]; ok {
		return c, nil
	}
	blob, err := m.Reader.ReadBlob(entry.Hash)
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

func (m *Materializer) write(p string, mode filemode.FileMode, content []byte) error {
	if err := m.FS.MkdirAll(path.Dir(p), 0755); err != nil {
		return err
	}
	if mode.IsSymlink() {
		return m.writeSymlink(p, content)
	}
	perm := os.FileMode(0644)
	if mode.IsExecutable() {
		perm = 0755
	}
	f, err := m.FS.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return err
	}
	if mode.IsExecutable() {
		// executable bit is applied where the host filesystem adapter
		// supports it (§4.5): a newly created file takes perm above, and a
		// file that already existed is chmod-ed when the adapter implements
		// billy.Change; otherwise its old mode is left as it was.
		if chg, ok := m.FS.(billy.Change); ok {
			_ = chg.Chmod(p, os.FileMode(0755))
		}
	}
	return nil
}

func (m *Materializer) writeSymlink(p string, target []byte) error {
	if sym, ok := m.FS.(billy.Symlink); ok {
		return sym.Symlink(string(target), p)
	}
	// fall back to writing the link target as a regular file when the
	// adapter has no symlink support; the mode is still recorded in the
	// index so git tooling downstream interprets it correctly.
	f, err := m.FS.Create(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(target)
	return err
}

func (m *Materializer) remove(p string) error {
	err := m.FS.Remove(p)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
