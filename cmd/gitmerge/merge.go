// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vcsforge/gitmerge/modules/errs"
	"github.com/vcsforge/gitmerge/modules/index"
	"github.com/vcsforge/gitmerge/modules/lock"
	"github.com/vcsforge/gitmerge/modules/orchestrator"
	"github.com/vcsforge/gitmerge/modules/plumbing"
	"github.com/vcsforge/gitmerge/modules/repo"
)

// MergeCmd implements `gitmerge merge`.
type MergeCmd struct {
	Theirs          string `arg:"" help:"Ref to merge into the current branch, as a full name such as refs/heads/feature"`
	Ours            string `name:"ours" help:"Branch to merge into, defaults to HEAD"`
	NoFF            bool   `name:"no-ff" help:"Always create a merge commit"`
	FFOnly          bool   `name:"ff-only" help:"Refuse to merge unless a fast-forward is possible"`
	AbortOnConflict bool   `name:"abort-on-conflict" help:"Leave the index and worktree untouched on conflict"`
	AllowUnrelated  bool   `name:"allow-unrelated-histories" help:"Merge histories with no common ancestor"`
	DryRun          bool   `name:"dry-run" help:"Compute the merge without writing anything"`
	Message         string `short:"m" name:"message" help:"Merge commit message"`
}

func (c *MergeCmd) Run(g *Globals) error {
	r, idx, err := openRepo(g)
	if err != nil {
		return err
	}

	o := orchestrator.New(r, idx)
	req := orchestrator.Request{
		Theirs:                  plumbing.ReferenceName(c.Theirs),
		AbortOnConflict:         c.AbortOnConflict,
		AllowUnrelatedHistories: c.AllowUnrelated,
		DryRun:                  c.DryRun,
		FastForwardOnly:         c.FFOnly,
		Message:                 c.Message,
		Log:                     g.logger(),
	}
	if c.Ours != "" {
		req.Ours = plumbing.ReferenceName(c.Ours)
	}
	if c.NoFF {
		no := false
		req.FastForward = &no
	}

	report, err := o.Merge(context.Background(), req)
	if err != nil {
		if errs.CodeOf(err) == errs.MergeConflict {
			if !c.DryRun {
				if saveErr := saveIndex(r, idx); saveErr != nil {
					return saveErr
				}
			}
			fmt.Fprintln(os.Stderr, err)
			return nil
		}
		return err
	}
	if !c.DryRun {
		if err := saveIndex(r, idx); err != nil {
			return err
		}
	}

	switch {
	case report.AlreadyMerged:
		fmt.Println("Already up to date.")
	case report.FastForward:
		fmt.Printf("Fast-forward to %s\n", report.OID)
	default:
		fmt.Printf("Merge commit %s\n", report.OID)
	}
	return nil
}

func openRepo(g *Globals) (*repo.Repository, *index.Index, error) {
	r, err := repo.Open(g.GitDir, g.WorkDir, plumbing.SHA1)
	if err != nil {
		return nil, nil, err
	}
	idx, err := loadIndex(r)
	if err != nil {
		return nil, nil, err
	}
	return r, idx, nil
}

func loadIndex(r *repo.Repository) (*index.Index, error) {
	data, err := os.ReadFile(filepath.Join(r.GitDir, "index"))
	if os.IsNotExist(err) {
		return index.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return index.Decode(data, r.Algo.Size())
}

func saveIndex(r *repo.Repository, idx *index.Index) error {
	data, err := idx.Encode(r.Algo.Size())
	if err != nil {
		return err
	}
	path := filepath.Join(r.GitDir, "index")
	l, err := lock.Acquire(context.Background(), path, 10*time.Second)
	if err != nil {
		return err
	}
	return l.Commit(data)
}
