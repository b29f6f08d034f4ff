// SPDX-License-Identifier: Apache-2.0

// Package config parses the subset of git-config the merge core consults
// (§6.7): merge.ff, merge.conflictstyle, user.name, user.email,
// core.autocrlf, core.safecrlf.
package config

import (
	"io"
	"os"

	"github.com/src-d/gcfg"
)

// FastForwardMode is the closed enumeration for merge.ff (§4.6).
type FastForwardMode string

const (
	// FFDefault fast-forwards when possible, otherwise creates a merge commit.
	FFDefault FastForwardMode = "true"
	// FFNever always creates a merge commit, even when a fast-forward is possible.
	FFNever FastForwardMode = "false"
	// FFOnly refuses to create a merge commit; fast-forward or fail.
	FFOnly FastForwardMode = "only"
)

// ConflictStyle selects how BlobMerger's surrounding marker block is
// labelled. Only "merge" is required by spec.md; "diff3" is optional.
type ConflictStyle string

const (
	ConflictStyleMerge ConflictStyle = "merge"
	ConflictStyleDiff3 ConflictStyle = "diff3"
)

// raw mirrors the on-disk INI shape gcfg decodes into; field names are
// matched case-insensitively against "[section] key = value" lines.
type raw struct {
	Merge struct {
		Ff            string
		Conflictstyle string
	}
	User struct {
		Name  string
		Email string
	}
	Core struct {
		Autocrlf string
		Safecrlf string
	}
}

// Config is the merged, typed view of the keys this module cares about.
type Config struct {
	MergeFF       FastForwardMode
	ConflictStyle ConflictStyle
	UserName      string
	UserEmail     string
	AutoCRLF      string
	SafeCRLF      bool
}

// Default returns the configuration the orchestrator uses when no config
// file is present: merge.ff defaults to "true" per §4.6.
func Default() *Config {
	return &Config{MergeFF: FFDefault, ConflictStyle: ConflictStyleMerge}
}

// Parse decodes a git-config format stream (as found at .git/config) into a
// Config, falling back to Default() for any key left unset.
func Parse(r io.Reader) (*Config, error) {
	var rw raw
	if err := gcfg.ReadInto(&rw, r); err != nil {
		return nil, err
	}
	cfg := Default()
	if rw.Merge.Ff != "" {
		cfg.MergeFF = FastForwardMode(rw.Merge.Ff)
	}
	if rw.Merge.Conflictstyle != "" {
		cfg.ConflictStyle = ConflictStyle(rw.Merge.Conflictstyle)
	}
	cfg.UserName = rw.User.Name
	cfg.UserEmail = rw.User.Email
	cfg.AutoCRLF = rw.Core.Autocrlf
	cfg.SafeCRLF = rw.Core.Safecrlf == "true"
	return cfg, nil
}

// Load reads and parses the config file at path, returning Default() if it
// does not exist (a bare or freshly initialised repository).
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Merge layers override on top of base, keeping base's values for any field
// override leaves at its zero value - the system/global/local precedence
// chain described in §9's "explicit Repository handle" design note.
func Merge(base, override *Config) *Config {
	merged := *base
	if override.MergeFF != "" {
		merged.MergeFF = override.MergeFF
	}
	if override.ConflictStyle != "" {
		merged.ConflictStyle = override.ConflictStyle
	}
	if override.UserName != "" {
		merged.UserName = override.UserName
	}
	if override.UserEmail != "" {
		merged.UserEmail = override.UserEmail
	}
	if override.AutoCRLF != "" {
		merged.AutoCRLF = override.AutoCRLF
	}
	if override.SafeCRLF {
		merged.SafeCRLF = true
	}
	return &merged
}
