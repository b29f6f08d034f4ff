// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
)

// Globals are flags every subcommand inherits.
type Globals struct {
	GitDir  string `name:"git-dir" help:"Path to the .git directory" default:".git"`
	WorkDir string `name:"work-dir" help:"Path to the working tree" default:"."`
	Verbose bool   `short:"V" name:"verbose" help:"Enable debug logging"`
}

func (g *Globals) logger() *logrus.Entry {
	l := logrus.New()
	if g.Verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(l)
}

type app struct {
	Globals
	Merge      MergeCmd      `cmd:"merge" help:"Join two development histories together"`
	Rebase     RebaseCmd     `cmd:"rebase" help:"Reapply commits on top of another base tip"`
	CherryPick CherryPickCmd `cmd:"cherry-pick" help:"Apply the changes introduced by existing commits"`
	Sequencer  SequencerCmd  `cmd:"sequencer" help:"Inspect rebase/cherry-pick sequencer state"`
}

func main() {
	var a app
	ctx := kong.Parse(&a,
		kong.Name("gitmerge"),
		kong.Description("Merge and sequencer core for a portable Git data model"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&a.Globals)
	ctx.FatalIfErrorf(err)
}
