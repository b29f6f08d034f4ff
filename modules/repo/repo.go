// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"path/filepath"

	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/osfs"

	"github.com/vcsforge/gitmerge/modules/config"
	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/odb"
	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/refstore"
)

// Repository bundles the object store, ref store, fs adapter and merged
// config view the orchestrator is parameterised by - no hidden ambient
// state (§9).
type Repository struct {
	GitDir     string
	WorkDir    string
	Objects    *odb.Loose
	Refs       *refstore.Store
	FS         billy.Filesystem
	Config     *config.Config
	Algo       plumbing.Algo
}

// Open builds a Repository rooted at gitDir/workDir, loading config from
// gitDir/config and defaulting any key it does not set.
func Open(gitDir, workDir string, algo plumbing.Algo) (*Repository, error) {
	cfg, err := config.Load(filepath.Join(gitDir, "config"))
	if err != nil {
		return nil, err
	}
	return &Repository{
		GitDir:  gitDir,
		WorkDir: workDir,
		Objects: odb.New(filepath.Join(gitDir, "objects"), algo),
		Refs:    refstore.New(gitDir),
		FS:      osfs.New(workDir),
		Config:  cfg,
		Algo:    algo,
	}, nil
}

// NewCache returns a fresh, task-scoped object cache (§5) - callers create
// one per logical merge operation and thread it explicitly through every
// collaborator call; Repository itself holds no cache of its own.
func (r *Repository) NewCache() *Cache { return NewCache() }

// CachedReader adapts a Repository + Cache pair to the ObjectReader
// interfaces TreeMerger, the worktree materializer and MergeBase consume,
// so every read goes through the cache first and falls back to the odb.
type CachedReader struct {
	Objects *odb.Loose
	Cache   *Cache
}

func (r *CachedReader) ReadTree(h plumbing.Hash) (*object.Tree, error) {
	if t, ok := r.Cache.GetTree(h); ok {
		return t, nil
	}
	t, err := r.Objects.ReadTree(h)
	if err != nil {
		return nil, err
	}
	r.Cache.PutTree(h, t)
	return t, nil
}

func (r *CachedReader) ReadBlob(h plumbing.Hash) (*object.Blob, error) {
	if b, ok := r.Cache.GetBlob(h); ok {
		return b, nil
	}
	b, err := r.Objects.ReadBlob(h)
	if err != nil {
		return nil, err
	}
	r.Cache.PutBlob(h, b)
	return b, nil
}

func (r *CachedReader) ReadCommit(h plumbing.Hash) (*object.Commit, error) {
	if c, ok := r.Cache.GetCommit(h); ok {
		return c, nil
	}
	c, err := r.Objects.ReadCommit(h)
	if err != nil {
		return nil, err
	}
	r.Cache.PutCommit(h, c)
	return c, nil
}

// CachedWriter writes through to the odb and then stores the written object
// in the cache under its new OID, so later reads in the same task are
// served from the cache.
type CachedWriter struct {
	Objects *odb.Loose
	Cache   *Cache
}

func (w *CachedWriter) WriteBlob(b *object.Blob) (plumbing.Hash, error) {
	h, err := w.Objects.WriteBlob(b)
	if err != nil {
		return nil, err
	}
	w.Cache.PutBlob(h, b)
	return h, nil
}

func (w *CachedWriter) WriteTree(t *object.Tree) (plumbing.Hash, error) {
	h, err := w.Objects.WriteTree(t)
	if err != nil {
		return nil, err
	}
	w.Cache.PutTree(h, t)
	return h, nil
}
