// SPDX-License-Identifier: Apache-2.0

// Package filemode defines the small enumeration of tree-entry modes a Git
// tree object can reference (§3.3).
package filemode

import (
	"fmt"
	"os"
	"strconv"
)

// FileMode represents the unix file mode recorded for a tree entry.
type FileMode uint32

const (
	Empty      FileMode = 0
	Dir        FileMode = 0040000
	Regular    FileMode = 0100644
	Deprecated FileMode = 0100664
	Executable FileMode = 0100755
	Symlink    FileMode = 0120000
	Submodule  FileMode = 0160000
)

// New parses an octal mode string as found in a canonical tree entry.
func New(s string) (FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return Empty, fmt.Errorf("filemode: invalid mode %q: %w", s, err)
	}
	return FileMode(n), nil
}

func (m FileMode) String() string {
	return fmt.Sprintf("%06o", uint32(m))
}

func (m FileMode) IsRegular() bool   { return m == Regular || m == Deprecated }
func (m FileMode) IsExecutable() bool { return m == Executable }
func (m FileMode) IsDir() bool        { return m == Dir }
func (m FileMode) IsSymlink() bool    { return m == Symlink }
func (m FileMode) IsSubmodule() bool  { return m == Submodule }

// IsMalformed reports whether m is outside the small enumeration the spec
// recognises (§3.3).
func (m FileMode) IsMalformed() bool {
	switch m {
	case Dir, Regular, Deprecated, Executable, Symlink, Submodule:
		return false
	default:
		return true
	}
}

// ToOSFileMode converts to the nearest os.FileMode a host filesystem
// adapter can apply. Submodules map to a directory mode (os.ModeDir|0644);
// a mode outside the enumeration is an error.
func (m FileMode) ToOSFileMode() (os.FileMode, error) {
	switch m {
	case Dir:
		return os.ModeDir | 0755, nil
	case Symlink:
		return os.ModeSymlink, nil
	case Executable:
		return 0755, nil
	case Regular, Deprecated:
		return 0644, nil
	case Submodule:
		return os.ModeDir | 0644, nil
	}
	return 0, fmt.Errorf("filemode: malformed mode %o", uint32(m))
}
