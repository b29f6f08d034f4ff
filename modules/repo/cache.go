// SPDX-License-Identifier: Apache-2.0

// Package repo provides the explicit Repository handle the orchestrator is
// parameterised by (§9 "global configuration lookup -> explicit Repository
// handle"): the object store, the ref store, the fs adapter, the merged
// config view, and a per-operation object cache.
package repo

import (
	"sync"

	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
)

// Cache is a mapping from OID to parsed object, explicitly owned by a
// single logical merge task and handed to every collaborator call (§5,
// §9). It is deliberately not a package-level singleton and not an LRU
// with an eviction policy (ruling out the teacher's process-wide
// ristretto cache, see DESIGN.md): the spec requires index mutations
// performed mid-merge to be instantly visible to later reads within that
// same merge, which only an unbounded, explicitly-scoped map guarantees.
type Cache struct {
	mu     sync.RWMutex
	trees  map[string]*object.Tree
	blobs  map[string]*object.Blob
	commits map[string]*object.Commit
}

func NewCache() *Cache {
	return &Cache{
		trees:   make(map[string]*object.Tree),
		blobs:   make(map[string]*object.Blob),
		commits: make(map[string]*object.Commit),
	}
}

func (c *Cache) GetTree(h plumbing.Hash) (*object.Tree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.trees[h.String()]
	return t, ok
}

func (c *Cache) PutTree(h plumbing.Hash, t *object.Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trees[h.String()] = t
}

func (c *Cache) GetBlob(h plumbing.Hash) (*object.Blob, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blobs[h.String()]
	return b, ok
}

func (c *Cache) PutBlob(h plumbing.Hash, b *object.Blob) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blobs[h.String()] = b
}

func (c *Cache) GetCommit(h plumbing.Hash) (*object.Commit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cm, ok := c.commits[h.String()]
	return cm, ok
}

func (c *Cache) PutCommit(h plumbing.Hash, cm *object.Commit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits[h.String()] = cm
}

// InvalidateObjectWrite is the §5 hook for "invalidated on any object
// write by the writer". Content-addressed writes never go stale, so this
// is a no-op until a repacking backend needs it.
func (c *Cache) InvalidateObjectWrite(h plumbing.Hash) {}
