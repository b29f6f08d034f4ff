// SPDX-License-Identifier: Apache-2.0

// Package refstore implements the reference storage interface consumed by
// the merge core (§6.2): plain-text refs under a git directory, HEAD
// resolution (including symbolic indirection), compare-and-set writes
// guarded by a lock file, and append-only reflogs.
package refstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vcsforge/gitmerge/modules/errs"
	"github.com/vcsforge/gitmerge/modules/lock"
	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
)

const lockTimeout = 10 * time.Second

// Store is a filesystem-backed reference store rooted at a git directory.
type Store struct {
	GitDir string
}

func New(gitDir string) *Store { return &Store{GitDir: gitDir} }

func (s *Store) path(name plumbing.ReferenceName) string {
	return filepath.Join(s.GitDir, filepath.FromSlash(string(name)))
}

// ResolveRef follows symbolic refs transparently and returns the final OID.
func (s *Store) ResolveRef(name plumbing.ReferenceName) (plumbing.Hash, error) {
	ref, err := s.readRaw(name)
	if err != nil {
		return nil, err
	}
	seen := map[plumbing.ReferenceName]bool{}
	for ref.Type() == plumbing.SymbolicReference {
		if seen[ref.Name()] {
			return nil, errs.New(errs.InvalidRef, "git.resolveRef", "symbolic reference cycle at "+string(name))
		}
		seen[ref.Name()] = true
		ref, err = s.readRaw(ref.Target())
		if err != nil {
			return nil, err
		}
	}
	return ref.Hash(), nil
}

// ReadRef returns the single, non-recursive record stored at name: either a
// symbolic reference or a hash reference, without following indirection.
// Used by callers that need to distinguish a detached HEAD (a hash
// reference) from an attached one (symbolic, pointing at refs/heads/*).
func (s *Store) ReadRef(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	return s.readRaw(name)
}

func (s *Store) readRaw(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.NotFound, "git.resolveRef", string(name), plumbing.ErrReferenceNotFound)
	}
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(string(data))
	if strings.HasPrefix(content, "ref: ") {
		return plumbing.NewSymbolicReference(name, plumbing.ReferenceName(strings.TrimPrefix(content, "ref: "))), nil
	}
	h, err := plumbing.NewHashEx(content)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidRef, "git.resolveRef", string(name), err)
	}
	return plumbing.NewHashReference(name, h), nil
}

// WriteOptions configures a ref write (§6.2).
type WriteOptions struct {
	// ExpectedOld, when non-nil, makes the write a compare-and-set: it
	// fails if the current value does not match.
	ExpectedOld     plumbing.Hash
	ReflogMessage   string
	Committer       object.Signature
}

// WriteRef updates name to point at h, guarded by a lock file and, when
// ExpectedOld is supplied, a compare-and-set check (§6.2). On success, when
// ReflogMessage is set, it appends a reflog entry; reflog failure does not
// unwind the ref write (§4.6 ordering guarantee 4).
func (s *Store) WriteRef(ctx context.Context, name plumbing.ReferenceName, h plumbing.Hash, opts WriteOptions) error {
	path := s.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	l, err := lock.Acquire(ctx, path, lockTimeout)
	if err != nil {
		return err
	}

	if opts.ExpectedOld != nil {
		cur, err := s.ResolveRef(name)
		if err != nil && errs.CodeOf(err) != errs.NotFound {
			l.Rollback()
			return err
		}
		if !cur.Equal(opts.ExpectedOld) {
			l.Rollback()
			return errs.New(errs.InvalidRef, "git.writeRef", fmt.Sprintf("compare-and-set failed for %s", name))
		}
	}

	if err := l.Commit([]byte(h.String() + "\n")); err != nil {
		return err
	}

	if opts.ReflogMessage != "" {
		_ = s.appendReflog(name, opts.ExpectedOld, h, opts.Committer, opts.ReflogMessage)
	}
	return nil
}

// WriteSymbolicRef points name at target (used to move HEAD between
// branches).
func (s *Store) WriteSymbolicRef(ctx context.Context, name, target plumbing.ReferenceName) error {
	path := s.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	l, err := lock.Acquire(ctx, path, lockTimeout)
	if err != nil {
		return err
	}
	return l.Commit([]byte("ref: " + string(target) + "\n"))
}

// ListRefs returns every hash reference under prefix.
func (s *Store) ListRefs(prefix string) ([]*plumbing.Reference, error) {
	root := filepath.Join(s.GitDir, filepath.FromSlash(prefix))
	var refs []*plumbing.Reference
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.GitDir, p)
		if err != nil {
			return err
		}
		name := plumbing.ReferenceName(filepath.ToSlash(rel))
		h, rerr := s.ResolveRef(name)
		if rerr != nil {
			return nil
		}
		refs = append(refs, plumbing.NewHashReference(name, h))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *Store) appendReflog(name plumbing.ReferenceName, old, new plumbing.Hash, who object.Signature, message string) error {
	logPath := filepath.Join(s.GitDir, "logs", filepath.FromSlash(string(name)))
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	oldStr := old.ZeroHash().String()
	if old != nil {
		oldStr = old.String()
	}
	line := fmt.Sprintf("%s %s %s\t%s\n", oldStr, new.String(), who.String(), message)
	_, err = f.WriteString(line)
	return err
}
