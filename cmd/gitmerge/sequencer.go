// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/vcsforge/gitmerge/modules/sequencer"
)

var errNotInProgress = errors.New("gitmerge: no rebase or cherry-pick in progress")

// RebaseCmd implements `gitmerge rebase --continue/--abort`. Starting a new
// rebase is out of scope for this CLI surface (the todo list is produced by
// a higher-level planner); this subcommand only drives the resumable
// sequencer state machine described in §4.7.
type RebaseCmd struct {
	Continue bool `name:"continue" help:"Resume after resolving the current step's conflicts"`
	Abort    bool `name:"abort" help:"Abort the rebase and remove its state"`
}

func (c *RebaseCmd) Run(g *Globals) error {
	return runSequencerStep(g, "rebase-merge", c.Continue, c.Abort)
}

// CherryPickCmd implements `gitmerge cherry-pick --continue/--abort`.
type CherryPickCmd struct {
	Continue bool `name:"continue" help:"Resume after resolving the current step's conflicts"`
	Abort    bool `name:"abort" help:"Abort the cherry-pick and remove its state"`
}

func (c *CherryPickCmd) Run(g *Globals) error {
	return runSequencerStep(g, "sequencer", c.Continue, c.Abort)
}

func runSequencerStep(g *Globals, stateDir string, cont, abort bool) error {
	store := sequencer.New(filepath.Join(g.GitDir, stateDir))
	if !store.IsInProgress() {
		return errNotInProgress
	}
	if abort {
		return store.Abort()
	}
	if !cont {
		return nil
	}

	cmd, ok, err := store.Next()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No commands remaining; run gitmerge sequencer status to confirm completion.")
		return store.Complete()
	}
	fmt.Printf("Next step: %s\n", cmd)
	return nil
}

// SequencerCmd implements `gitmerge sequencer status`.
type SequencerCmd struct {
	Status SequencerStatusCmd `cmd:"status" help:"Report whether a rebase or cherry-pick is in progress"`
}

type SequencerStatusCmd struct{}

func (c *SequencerStatusCmd) Run(g *Globals) error {
	rebase := sequencer.New(filepath.Join(g.GitDir, "rebase-merge"))
	pick := sequencer.New(filepath.Join(g.GitDir, "sequencer"))

	switch {
	case rebase.IsInProgress():
		return printRemaining(rebase, "rebase")
	case pick.IsInProgress():
		return printRemaining(pick, "cherry-pick")
	default:
		fmt.Println("No rebase or cherry-pick in progress.")
		return nil
	}
}

func printRemaining(store *sequencer.Store, kind string) error {
	todo, err := store.ReadTodo()
	if err != nil {
		return err
	}
	fmt.Printf("%s in progress, %d command(s) remaining:\n", kind, len(todo))
	for _, cmd := range todo {
		fmt.Printf("  %s\n", cmd)
	}
	return nil
}
