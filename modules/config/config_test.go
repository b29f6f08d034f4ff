// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsWhenKeysAbsent(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, FFDefault, cfg.MergeFF)
	require.Equal(t, ConflictStyleMerge, cfg.ConflictStyle)
}

func TestParseOverridesFromIni(t *testing.T) {
	src := `
[merge]
	ff = false
	conflictstyle = diff3
[user]
	name = A U Thor
	email = a@example.com
[core]
	safecrlf = true
`
	cfg, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, FFNever, cfg.MergeFF)
	require.Equal(t, ConflictStyleDiff3, cfg.ConflictStyle)
	require.Equal(t, "A U Thor", cfg.UserName)
	require.Equal(t, "a@example.com", cfg.UserEmail)
	require.True(t, cfg.SafeCRLF)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load("/nonexistent/path/to/config")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestMergePrefersOverrideOverBase(t *testing.T) {
	base := Default()
	base.UserName = "base user"
	override := &Config{MergeFF: FFOnly, UserEmail: "override@example.com"}

	merged := Merge(base, override)
	require.Equal(t, FFOnly, merged.MergeFF)
	require.Equal(t, "base user", merged.UserName, "override leaves UserName unset, base wins")
	require.Equal(t, "override@example.com", merged.UserEmail)
}
