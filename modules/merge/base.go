// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/plumbing"
)

// CommitReader is the subset of the object database MergeBase walks.
type CommitReader interface {
	ReadCommit(h plumbing.Hash) (*object.Commit, error)
}

const (
	markParent1 = 1 << iota
	markParent2
	markStale
	markResult
)

type markedCommit struct {
	hash  plumbing.Hash
	when  int64 // commit time, used only to order BFS expansion newest-first
	flags int
}

// byNewest orders the priority queue so the most recently committed node is
// popped first, matching the BFS expansion order the teacher's
// getCommonParents walk relies on to find minimal common ancestors before
// exhausting the whole DAG.
func byNewest(a, b interface{}) int {
	ca, cb := a.(*markedCommit), b.(*markedCommit)
	switch {
	case ca.when > cb.when:
		return -1
	case ca.when < cb.when:
		return 1
	default:
		return 0
	}
}

// Base implements C3: best common-ancestor selection over the commit parent
// DAG (§4.3), via a BFS from both tips that marks which side(s) have
// visited each commit, extracting minimal common ancestors.
type Base struct {
	Reader CommitReader
}

// MergeBases returns every minimal common ancestor of ours and theirs. Per
// §4.3/§9, the orchestrator is responsible for rejecting result sets with
// more than one element (criss-cross merges) rather than reducing them to
// a single virtual base.
func (mb *Base) MergeBases(ours, theirs plumbing.Hash) ([]plumbing.Hash, error) {
	pq := priorityqueue.NewWith(byNewest)

	oursWhen, err := mb.timeOf(ours)
	if err != nil {
		return nil, err
	}
	theirsWhen, err := mb.timeOf(theirs)
	if err != nil {
		return nil, err
	}
	pq.Enqueue(&markedCommit{hash: ours, when: oursWhen, flags: markParent1})
	pq.Enqueue(&markedCommit{hash: theirs, when: theirsWhen, flags: markParent2})

	seen := map[string]int{} // hash hex -> accumulated flags
	var results []plumbing.Hash

	for !pq.Empty() {
		v, _ := pq.Dequeue()
		el := v.(*markedCommit)
		key := el.hash.String()

		acc := seen[key] | el.flags
		seen[key] = acc

		flags := acc & (markParent1 | markParent2 | markStale)
		if flags == (markParent1 | markParent2) {
			if acc&markResult == 0 {
				seen[key] = acc | markResult
				results = append(results, el.hash)
			}
			flags |= markStale
			seen[key] |= markStale
		}

		c, err := mb.Reader.ReadCommit(el.hash)
		if err != nil {
			return nil, err
		}
		for _, p := range c.Parents {
			pc, err := mb.Reader.ReadCommit(p)
			if err != nil {
				return nil, err
			}
			pflags := flags
			if already := seen[p.String()]; already&pflags == pflags {
				continue // nothing new to propagate
			}
			pq.Enqueue(&markedCommit{hash: p, when: pc.Committer.When.Unix(), flags: pflags})
		}
	}

	return dedupeAncestors(results, mb.Reader)
}

func (mb *Base) timeOf(h plumbing.Hash) (int64, error) {
	c, err := mb.Reader.ReadCommit(h)
	if err != nil {
		return 0, err
	}
	return c.Committer.When.Unix(), nil
}

// dedupeAncestors removes any result that is itself a (possibly indirect)
// ancestor of another result, keeping only the minimal set (§4.3).
func dedupeAncestors(results []plumbing.Hash, reader CommitReader) ([]plumbing.Hash, error) {
	if len(results) <= 1 {
		return results, nil
	}
	minimal := make([]plumbing.Hash, 0, len(results))
	for i, h := range results {
		isAncestor := false
		for j, other := range results {
			if i == j {
				continue
			}
			ok, err := isAncestorOf(h, other, reader)
			if err != nil {
				return nil, err
			}
			if ok {
				isAncestor = true
				break
			}
		}
		if !isAncestor {
			minimal = append(minimal, h)
		}
	}
	return minimal, nil
}

// IsAncestor reports whether candidate is a (possibly indirect) ancestor of
// of, walking parents from of. Used by the orchestrator to classify
// already-merged and fast-forward cases (§4.6) without a full MergeBases
// computation.
func IsAncestor(candidate, of plumbing.Hash, reader CommitReader) (bool, error) {
	return isAncestorOf(candidate, of, reader)
}

func isAncestorOf(candidate, of plumbing.Hash, reader CommitReader) (bool, error) {
	if candidate.Equal(of) {
		return false, nil
	}
	queue := []plumbing.Hash{of}
	visited := map[string]bool{}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		key := h.String()
		if visited[key] {
			continue
		}
		visited[key] = true
		if h.Equal(candidate) {
			return true, nil
		}
		c, err := reader.ReadCommit(h)
		if err != nil {
			return false, err
		}
		queue = append(queue, c.Parents...)
	}
	return false, nil
}
