// SPDX-License-Identifier: Apache-2.0

// Package orchestrator implements MergeOrchestrator (C6): the top-level
// merge(req) -> MergeReport operation described in §4.6 — reference
// resolution, merge-base selection, the already-merged/fast-forward/true-merge
// state machine, commit creation, index and worktree materialization, and
// the ref-advance linearisation point.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vcsforge/gitmerge/modules/config"
	"github.com/vcsforge/gitmerge/modules/errs"
	"github.com/vcsforge/gitmerge/modules/index"
	"github.com/vcsforge/gitmerge/modules/merge"
	"github.com/vcsforge/gitmerge/modules/object"
	"github.com/vcsforge/gitmerge/modules/odb"
	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/refstore"
	"github.com/vcsforge/gitmerge/modules/repo"
	"github.com/vcsforge/gitmerge/modules/worktree"
)

// discard is the nil-safe default logger every package in this module that
// takes an optional *logrus.Entry falls back to.
var discard = logrus.NewEntry(func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}())

func logOf(e *logrus.Entry) *logrus.Entry {
	if e == nil {
		return discard
	}
	return e
}

// SignHook is the §6.5 consumed interface: sign payload with keyId, return
// the armored signature envelope.
type SignHook func(payload []byte, keyID string) (string, error)

// Request configures one merge(req) call (§4.6's enumerated options).
type Request struct {
	Ours   plumbing.ReferenceName // defaults to HEAD
	Theirs plumbing.ReferenceName // required

	FastForward             *bool // nil defers to config merge.ff
	FastForwardOnly         bool
	DryRun                  bool
	NoUpdateBranch          bool
	AbortOnConflict         bool
	AllowUnrelatedHistories bool

	Message   string
	Author    *object.Signature
	Committer *object.Signature

	MergeDriver merge.Driver
	DriverMatch func(path string) bool

	SigningKey string
	OnSign     SignHook

	// Log, when set, receives structured progress at Debug/Warn/Error per
	// the ambient logging conventions; nil logs nowhere.
	Log *logrus.Entry
}

// Report is the orchestrator's return value (§3.9).
type Report struct {
	OID           plumbing.Hash
	Tree          plumbing.Hash
	AlreadyMerged bool
	FastForward   bool
	MergeCommit   bool
	Conflicts     []merge.Conflict
}

// Orchestrator wires a Repository, a task-scoped cache and an in-memory
// index together into C6. One Orchestrator handles exactly one merge task;
// nothing here is safe to reuse across concurrent merges (§5).
type Orchestrator struct {
	Repo  *repo.Repository
	Cache *repo.Cache
	Index *index.Index
}

// New builds an Orchestrator against repository r, creating the task-owned
// cache the spec requires (§5, §9).
func New(r *repo.Repository, idx *index.Index) *Orchestrator {
	return &Orchestrator{Repo: r, Cache: r.NewCache(), Index: idx}
}

// Merge performs the full state machine described in §4.6.
func (o *Orchestrator) Merge(ctx context.Context, req Request) (*Report, error) {
	const op = "git.merge"
	log := logOf(req.Log)

	if req.Theirs == "" {
		return nil, errs.MissingParam(op, "theirs")
	}
	if req.SigningKey != "" && req.OnSign == nil {
		return nil, errs.MissingParam(op, "onSign")
	}
	if o.Index.HasUnmergedEntries() {
		return nil, errs.New(errs.UnmergedPaths, op, "index has unresolved conflicts from a previous merge")
	}

	oursRef := req.Ours
	var headSym plumbing.ReferenceName
	if oursRef == "" {
		head, err := o.Repo.Refs.ReadRef(plumbing.HEAD)
		if err != nil {
			return nil, errs.Wrap(errs.NoCommit, op, "cannot resolve HEAD", err)
		}
		if head.Type() != plumbing.SymbolicReference {
			return nil, errs.New(errs.DetachedHead, op, "HEAD is detached; pass an explicit ours ref")
		}
		headSym = head.Target()
		oursRef = headSym
	}

	// Ordering guarantee 1: resolution and merge-base selection happen
	// before any write. The two ref reads are independent suspension
	// points, dispatched concurrently per the ambient concurrency policy.
	var oursOID, theirsOID plumbing.Hash
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := o.Repo.Refs.ResolveRef(oursRef)
		if err != nil {
			return errs.Wrap(errs.NoCommit, op, "resolve ours", err)
		}
		oursOID = h
		return nil
	})
	g.Go(func() error {
		h, err := o.Repo.Refs.ResolveRef(req.Theirs)
		if err != nil {
			return errs.Wrap(errs.NoCommit, op, "resolve theirs", err)
		}
		theirsOID = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"ours": oursOID.String(), "theirs": theirsOID.String()}).Debug("resolved merge tips")

	reader := &repo.CachedReader{Objects: o.Repo.Objects, Cache: o.Cache}

	if oursOID.Equal(theirsOID) {
		oursCommit, err := reader.ReadCommit(oursOID)
		if err != nil {
			return nil, errs.Wrap(errs.NoCommit, op, "read ours commit", err)
		}
		return &Report{OID: oursOID, Tree: oursCommit.TreeHash, AlreadyMerged: true}, nil
	}

	theirsAncestorOfOurs, err := merge.IsAncestor(theirsOID, oursOID, reader)
	if err != nil {
		return nil, err
	}
	if theirsAncestorOfOurs {
		oursCommit, err := reader.ReadCommit(oursOID)
		if err != nil {
			return nil, err
		}
		log.Debug("theirs is an ancestor of ours: already merged")
		return &Report{OID: oursOID, Tree: oursCommit.TreeHash, AlreadyMerged: true}, nil
	}

	ffMode := o.resolveFFMode(req)
	if ffMode != config.FFNever {
		oursAncestorOfTheirs, err := merge.IsAncestor(oursOID, theirsOID, reader)
		if err != nil {
			return nil, err
		}
		if oursAncestorOfTheirs {
			theirsCommit, err := reader.ReadCommit(theirsOID)
			if err != nil {
				return nil, err
			}
			log.Debug("fast-forward possible")
			return o.fastForward(ctx, req, op, oursRef, headSym, oursOID, theirsOID, theirsCommit)
		}
	}
	if req.FastForwardOnly || ffMode == config.FFOnly {
		return nil, errs.New(errs.FastForward, op, "fast-forward required but not possible")
	}

	return o.trueMerge(ctx, req, op, oursRef, headSym, oursOID, theirsOID, reader, log)
}

func (o *Orchestrator) resolveFFMode(req Request) config.FastForwardMode {
	if req.FastForward != nil {
		if !*req.FastForward {
			return config.FFNever
		}
		return config.FFDefault
	}
	if o.Repo != nil && o.Repo.Config != nil && o.Repo.Config.MergeFF != "" {
		return o.Repo.Config.MergeFF
	}
	return config.FFDefault
}

// fastForward implements the FAST_FORWARD branch: move the ref straight to
// theirs' OID without creating a commit.
func (o *Orchestrator) fastForward(ctx context.Context, req Request, op string, oursRef, headSym plumbing.ReferenceName, oursOID, theirsOID plumbing.Hash, theirsCommit *object.Commit) (*Report, error) {
	report := &Report{OID: theirsOID, Tree: theirsCommit.TreeHash, FastForward: true}
	if req.DryRun || req.NoUpdateBranch {
		return report, nil
	}

	target := oursRef
	if headSym != "" {
		target = headSym
	}
	committer, _ := o.resolveIdentity(req, op)
	opts := refstore.WriteOptions{
		ExpectedOld:   oursOID,
		ReflogMessage: "merge " + theirsOID.Prefix(7) + ": Fast-forward",
		Committer:     committer,
	}
	if err := o.Repo.Refs.WriteRef(ctx, target, theirsOID, opts); err != nil {
		return nil, errs.Wrap(errs.InvalidRef, op, "advance ref", err)
	}
	return report, nil
}

func (o *Orchestrator) trueMerge(ctx context.Context, req Request, op string, oursRef, headSym plumbing.ReferenceName, oursOID, theirsOID plumbing.Hash, reader *repo.CachedReader, log *logrus.Entry) (*Report, error) {
	base := &merge.Base{Reader: reader}
	bases, err := base.MergeBases(oursOID, theirsOID)
	if err != nil {
		return nil, err
	}
	var baseTree *object.Tree
	switch len(bases) {
	case 0:
		if !req.AllowUnrelatedHistories {
			return nil, errs.New(errs.MergeNotSupported, op, "no common ancestor; set allowUnrelatedHistories to proceed")
		}
		baseTree = &object.Tree{}
	case 1:
		baseCommit, err := reader.ReadCommit(bases[0])
		if err != nil {
			return nil, err
		}
		baseTree, err = reader.ReadTree(baseCommit.TreeHash)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errs.New(errs.MergeNotSupported, op, "criss-cross merge: multiple merge bases")
	}

	oursCommit, err := reader.ReadCommit(oursOID)
	if err != nil {
		return nil, err
	}
	theirsCommit, err := reader.ReadCommit(theirsOID)
	if err != nil {
		return nil, err
	}
	oursTree, err := reader.ReadTree(oursCommit.TreeHash)
	if err != nil {
		return nil, err
	}
	theirsTree, err := reader.ReadTree(theirsCommit.TreeHash)
	if err != nil {
		return nil, err
	}

	writer := &repo.CachedWriter{Objects: o.Repo.Objects, Cache: o.Cache}
	tm := &merge.TreeMerger{Reader: reader, Writer: writer, HashSize: o.Repo.Algo.Size()}
	result, err := tm.Merge(baseTree, oursTree, theirsTree, "", merge.TreeMergeOptions{
		PathDriver: req.MergeDriver,
		MatchPath:  req.DriverMatch,
	})
	if err != nil {
		return nil, err
	}

	log.WithField("conflicts", len(result.Conflicts)).Debug("tree merge complete")

	if len(result.Conflicts) > 0 {
		if req.AbortOnConflict {
			return &Report{Tree: result.TreeHash, Conflicts: result.Conflicts}, errs.Conflict(op, conflictPaths(result.Conflicts))
		}
		if !req.DryRun {
			if err := o.stageResult(reader, result); err != nil {
				return nil, err
			}
			if err := o.materializeConflicts(oursCommit.TreeHash, result, reader); err != nil {
				log.WithError(err).Warn("failed to materialize conflict content to working tree")
			}
		}
		return &Report{Tree: result.TreeHash, Conflicts: result.Conflicts}, errs.Conflict(op, conflictPaths(result.Conflicts))
	}

	committer, err := o.resolveIdentity(req, op)
	if err != nil {
		return nil, err
	}

	commit := &object.Commit{
		TreeHash:  result.TreeHash,
		Parents:   []plumbing.Hash{oursOID, theirsOID},
		Author:    committer,
		Committer: committer,
		Message:   mergeMessage(req, oursRef),
	}
	if req.SigningKey != "" {
		sig, err := req.OnSign(commit.Encode(), req.SigningKey)
		if err != nil {
			return nil, fmt.Errorf("%s: sign commit: %w", op, err)
		}
		commit.PGPSig = sig
	}

	// dryRun invariance (§8.1, §4.6): report the commit OID the merge would
	// produce without staging the index, touching the working tree, or
	// persisting the commit object.
	if req.DryRun {
		oid := odb.HashObject(object.CommitObject, commit.Encode(), o.Repo.Algo)
		return &Report{OID: oid, Tree: result.TreeHash, MergeCommit: true}, nil
	}

	if err := o.stageResult(reader, result); err != nil {
		return nil, err
	}
	if err := o.materializeClean(oursCommit.TreeHash, result.TreeHash, reader); err != nil {
		log.WithError(err).Warn("failed to materialize merged tree to working tree")
	}

	// Ordering guarantee 2: object writes (blobs, trees, commit) happen
	// before any ref write - the tree and its blobs are already persisted
	// by TreeMerger above, so only the commit remains.
	oid, err := o.Repo.Objects.WriteCommit(commit)
	if err != nil {
		return nil, errs.Wrap(errs.NotFound, op, "write merge commit", err)
	}

	report := &Report{OID: oid, Tree: result.TreeHash, MergeCommit: true}
	if req.NoUpdateBranch {
		return report, nil
	}

	target := oursRef
	if headSym != "" {
		target = headSym
	}
	// Ordering guarantee 3: the ref write is the linearisation point for
	// "merge succeeded". Guarantee 4: reflog failure does not unwind it -
	// WriteRef already treats reflog append as best-effort.
	opts := refstore.WriteOptions{
		ExpectedOld:   oursOID,
		ReflogMessage: mergeMessage(req, oursRef),
		Committer:     committer,
	}
	if err := o.Repo.Refs.WriteRef(ctx, target, oid, opts); err != nil {
		return nil, errs.Wrap(errs.InvalidRef, op, "advance ref", err)
	}
	return report, nil
}

func (o *Orchestrator) stageResult(reader *repo.CachedReader, result merge.Result) error {
	updater := &index.Updater{Walker: &treeWalker{reader: reader}}
	return updater.Apply(o.Index, result.TreeHash, result.Conflicts)
}

func (o *Orchestrator) materializeClean(oldRoot, newRoot plumbing.Hash, reader *repo.CachedReader) error {
	diffs, err := treeDiff(oldRoot, newRoot, reader)
	if err != nil {
		return err
	}
	mat := &worktree.Materializer{FS: o.Repo.FS, Reader: reader}
	_, err = mat.Apply(diffs, nil, worktree.Options{})
	return err
}

func (o *Orchestrator) materializeConflicts(oldRoot plumbing.Hash, result merge.Result, reader *repo.CachedReader) error {
	diffs, err := treeDiff(oldRoot, result.TreeHash, reader)
	if err != nil {
		return err
	}
	content := map[string][]byte{}
	for _, c := range result.Conflicts {
		if c.Kind == merge.ContentConflict || c.Kind == merge.AddAddConflict {
			continue // written from the merged blob TreeMerger produced (its diff3 marker block, if any)
		}
		data, err := markerBlockFor(c, reader)
		if err != nil {
			return err
		}
		content[c.Path] = data
	}
	mat := &worktree.Materializer{FS: o.Repo.FS, Reader: reader}
	_, err = mat.Apply(diffs, result.Conflicts, worktree.Options{ConflictContent: content})
	return err
}

func markerBlockFor(c merge.Conflict, reader *repo.CachedReader) ([]byte, error) {
	ourData, err := blobOrEmpty(c.Ours, reader)
	if err != nil {
		return nil, err
	}
	theirData, err := blobOrEmpty(c.Theirs, reader)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("<<<<<<< ours\n")
	buf.Write(ourData)
	ensureTrailingNewline(&buf)
	buf.WriteString("=======\n")
	buf.Write(theirData)
	ensureTrailingNewline(&buf)
	buf.WriteString(">>>>>>> theirs\n")
	return buf.Bytes(), nil
}

func blobOrEmpty(e *object.TreeEntry, reader *repo.CachedReader) ([]byte, error) {
	if e == nil || e.Type() != object.BlobObject {
		return nil, nil
	}
	b, err := reader.ReadBlob(e.Hash)
	if err != nil {
		return nil, err
	}
	return b.Data, nil
}

func ensureTrailingNewline(buf *bytes.Buffer) {
	b := buf.Bytes()
	if len(b) > 0 && b[len(b)-1] != '\n' {
		buf.WriteByte('\n')
	}
}

func (o *Orchestrator) resolveIdentity(req Request, op string) (object.Signature, error) {
	if req.Author != nil {
		committer := *req.Author
		if req.Committer != nil {
			committer = *req.Committer
		}
		return committer, nil
	}
	if o.Repo.Config.UserName == "" {
		return object.Signature{}, errs.New(errs.MissingName, op, "no author identity configured")
	}
	if o.Repo.Config.UserEmail == "" {
		return object.Signature{}, errs.New(errs.MissingEmail, op, "no author identity configured")
	}
	return object.Signature{Name: o.Repo.Config.UserName, Email: o.Repo.Config.UserEmail}, nil
}

func mergeMessage(req Request, oursRef plumbing.ReferenceName) string {
	if req.Message != "" {
		return req.Message
	}
	return fmt.Sprintf("Merge %s into %s\n", req.Theirs.Short(), oursRef.Short())
}

func conflictPaths(cs []merge.Conflict) []string {
	paths := make([]string, len(cs))
	for i, c := range cs {
		paths[i] = c.Path
	}
	return paths
}

// treeWalker flattens a tree into its full path -> entry map, recursing
// through subtrees, so IndexUpdater can stage every resolved path without
// re-deriving TreeMerger's recursion.
type treeWalker struct{ reader *repo.CachedReader }

func (w *treeWalker) Walk(root plumbing.Hash) (map[string]*object.TreeEntry, error) {
	out := map[string]*object.TreeEntry{}
	if err := w.walk(root, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *treeWalker) walk(h plumbing.Hash, prefix string, out map[string]*object.TreeEntry) error {
	tr, err := w.reader.ReadTree(h)
	if err != nil {
		return err
	}
	for _, e := range tr.Entries {
		p := e.Name
		if prefix != "" {
			p = prefix + "/" + e.Name
		}
		if e.Type() == object.TreeObject {
			if err := w.walk(e.Hash, p, out); err != nil {
				return err
			}
			continue
		}
		out[p] = e
	}
	return nil
}

// treeDiff flattens both trees and returns every path whose entry changed,
// including additions and deletions, for WorktreeMaterializer.
func treeDiff(oldRoot, newRoot plumbing.Hash, reader *repo.CachedReader) ([]worktree.Diff, error) {
	w := &treeWalker{reader: reader}
	oldEntries, err := w.Walk(oldRoot)
	if err != nil {
		return nil, err
	}
	newEntries, err := w.Walk(newRoot)
	if err != nil {
		return nil, err
	}

	var diffs []worktree.Diff
	for p, ne := range newEntries {
		oe := oldEntries[p]
		if oe.Equal(ne) {
			continue
		}
		diffs = append(diffs, worktree.Diff{Path: p, OldEntry: oe, NewEntry: ne})
	}
	for p, oe := range oldEntries {
		if _, ok := newEntries[p]; !ok {
			diffs = append(diffs, worktree.Diff{Path: p, OldEntry: oe, NewEntry: nil})
		}
	}
	return diffs, nil
}
