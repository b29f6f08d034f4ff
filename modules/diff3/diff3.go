// SPDX-License-Identifier: Apache-2.0

package diff3

import (
	"bytes"
	"fmt"
	"sort"
)

// The literal conflict-marker sequences required by §4.1: exactly seven
// repeated characters each.
const (
	markerStart  = "<<<<<<<"
	markerMiddle = "======="
	markerEnd    = ">>>>>>>"
)

// Options configures a single BlobMerger invocation.
type Options struct {
	OurName   string // display name for the "ours" side, default "ours"
	TheirName string // display name for the "theirs" side, default "theirs"
}

// Result is the output of Merge (§4.1).
type Result struct {
	Merged      []byte
	HasConflict bool
}

// region is a run of O covered by zero or more overlapping changes from
// each side, classified as stable/clean/conflicting.
type region struct {
	start, end int // line range in O
	changesA   []change
	changesB   []change
	isConflict bool
}

// Merge performs the three-way line merge described in spec §4.1. base may
// be empty (representing an absent base tree entry, per TreeMerger rule
//12); ours and theirs are the two sides to reconcile.
func Merge(base, ours, theirs []byte, opts Options) Result {
	if opts.OurName == "" {
		opts.OurName = "ours"
	}
	if opts.TheirName == "" {
		opts.TheirName = "theirs"
	}

	sk := newSink()
	oIdx := sk.splitLines(base)
	aIdx := sk.splitLines(ours)
	bIdx := sk.splitLines(theirs)

	changesA := myersDiff(oIdx, aIdx)
	changesB := myersDiff(oIdx, bIdx)

	regions := groupRegions(changesA, changesB, sk, oIdx, aIdx, bIdx)

	var out bytes.Buffer
	hasConflict := false
	pos := 0
	for _, r := range regions {
		if pos < r.start {
			out.Write(sk.join(oIdx[pos:r.start]))
		}
		if r.isConflict {
			hasConflict = true
			writeConflict(&out, sk, oIdx, aIdx, bIdx, r, opts)
		} else {
			writeClean(&out, sk, aIdx, bIdx, r)
		}
		pos = r.end
	}
	if pos < len(oIdx) {
		out.Write(sk.join(oIdx[pos:]))
	}

	return Result{Merged: out.Bytes(), HasConflict: hasConflict}
}

// HasConflict is a cheaper variant of Merge that only answers whether a
// conflict would arise, without materialising the merged content.
func HasConflict(base, ours, theirs []byte) bool {
	sk := newSink()
	oIdx := sk.splitLines(base)
	aIdx := sk.splitLines(ours)
	bIdx := sk.splitLines(theirs)
	changesA := myersDiff(oIdx, aIdx)
	changesB := myersDiff(oIdx, bIdx)
	for _, r := range groupRegions(changesA, changesB, sk, oIdx, aIdx, bIdx) {
		if r.isConflict {
			return true
		}
	}
	return false
}

func groupRegions(changesA, changesB []change, sk *sink, oIdx, aIdx, bIdx []int) []region {
	type tagged struct {
		ch   change
		side int // 0 = A (ours), 1 = B (theirs)
	}
	all := make([]tagged, 0, len(changesA)+len(changesB))
	for _, c := range changesA {
		all = append(all, tagged{c, 0})
	}
	for _, c := range changesB {
		all = append(all, tagged{c, 1})
	}
	if len(all) == 0 {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ch.P1 < all[j].ch.P1 })

	var regions []region
	cur := region{start: all[0].ch.P1, end: all[0].ch.P1 + all[0].ch.Del}
	add := func(r *region, t tagged) {
		if t.side == 0 {
			r.changesA = append(r.changesA, t.ch)
		} else {
			r.changesB = append(r.changesB, t.ch)
		}
	}
	add(&cur, all[0])

	for _, t := range all[1:] {
		end := t.ch.P1 + t.ch.Del
		if t.ch.P1 <= cur.end {
			if end > cur.end {
				cur.end = end
			}
			add(&cur, t)
		} else {
			regions = append(regions, finalize(cur, sk, oIdx, aIdx, bIdx))
			cur = region{start: t.ch.P1, end: end}
			add(&cur, t)
		}
	}
	regions = append(regions, finalize(cur, sk, oIdx, aIdx, bIdx))
	return regions
}

func finalize(r region, sk *sink, oIdx, aIdx, bIdx []int) region {
	r.isConflict = len(r.changesA) > 0 && len(r.changesB) > 0
	if r.isConflict && isFalseConflict(r, sk, aIdx, bIdx) {
		r.isConflict = false
	}
	return r
}

// isFalseConflict reports whether both sides independently made the exact
// same edit (§4.1: "identical change on both sides... clean, no conflict").
func isFalseConflict(r region, sk *sink, aIdx, bIdx []int) bool {
	if len(r.changesA) != 1 || len(r.changesB) != 1 {
		return false
	}
	ca, cb := r.changesA[0], r.changesB[0]
	if ca.P1 != cb.P1 || ca.Del != cb.Del || ca.Ins != cb.Ins {
		return false
	}
	return bytes.Equal(sk.join(aIdx[ca.B1:ca.B1+ca.Ins]), sk.join(bIdx[cb.B1:cb.B1+cb.Ins]))
}

// writeClean emits the single side that changed (or either, if identical)
// within a non-conflicting region.
func writeClean(out *bytes.Buffer, sk *sink, aIdx, bIdx []int, r region) {
	if len(r.changesA) > 0 {
		for _, c := range r.changesA {
			out.Write(sk.join(aIdx[c.B1 : c.B1+c.Ins]))
		}
		return
	}
	for _, c := range r.changesB {
		out.Write(sk.join(bIdx[c.B1 : c.B1+c.Ins]))
	}
}

// writeConflict emits the standard marker block enclosing both divergent
// variants (§4.1). When a side made no change in this region its content
// defaults to whatever the base held there, consistent with reference Git.
func writeConflict(out *bytes.Buffer, sk *sink, oIdx, aIdx, bIdx []int, r region, opts Options) {
	fmt.Fprintf(out, "%s %s\n", markerStart, opts.OurName)
	out.Write(sideContent(r.changesA, sk, oIdx, aIdx, r))
	ensureTerminated(out)
	fmt.Fprintf(out, "%s\n", markerMiddle)
	out.Write(sideContent(r.changesB, sk, oIdx, bIdx, r))
	ensureTerminated(out)
	fmt.Fprintf(out, "%s %s\n", markerEnd, opts.TheirName)
}

// sideContent returns the content one side contributes to a conflict
// region: the replacement text from its own change set if it edited this
// span, or the unmodified base text otherwise.
func sideContent(changes []change, sk *sink, oIdx, sideIdx []int, r region) []byte {
	if len(changes) == 0 {
		return sk.join(oIdx[r.start:r.end])
	}
	first, last := changes[0], changes[len(changes)-1]
	return sk.join(sideIdx[first.B1 : last.B1+last.Ins])
}

// ensureTerminated guarantees the marker line that follows starts on its
// own line even if the preceding content's final line had no terminator.
func ensureTerminated(out *bytes.Buffer) {
	b := out.Bytes()
	if len(b) > 0 && b[len(b)-1] != '\n' {
		out.WriteByte('\n')
	}
}

