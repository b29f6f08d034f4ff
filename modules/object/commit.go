// SPDX-License-Identifier: Apache-2.0

package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vcsforge/gitmerge/modules/plumbing"
)

// Signature is an author or committer record: name, email, timestamp and
// timezone offset, encoded the way Git writes it: "Name <email> unixts tz".
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func (s Signature) String() string {
	_, offset := s.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s <%s> %d %s%02d%02d", s.Name, s.Email, s.When.Unix(), sign, offset/3600, (offset%3600)/60)
}

// DecodeSignature parses a single "Name <email> unixts tz" line.
func DecodeSignature(line string) (Signature, error) {
	lt := strings.LastIndexByte(line, '<')
	gt := strings.LastIndexByte(line, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("object: malformed signature %q", line)
	}
	name := strings.TrimSpace(line[:lt])
	email := line[lt+1 : gt]
	rest := strings.TrimSpace(line[gt+1:])
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("object: malformed signature timestamp %q", rest)
	}
	sec, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("object: malformed signature timestamp: %w", err)
	}
	loc := parseTZ(fields[1])
	return Signature{Name: name, Email: email, When: time.Unix(sec, 0).In(loc)}, nil
}

func parseTZ(tz string) *time.Location {
	if len(tz) != 5 {
		return time.UTC
	}
	sign := 1
	if tz[0] == '-' {
		sign = -1
	}
	hh, err1 := strconv.Atoi(tz[1:3])
	mm, err2 := strconv.Atoi(tz[3:5])
	if err1 != nil || err2 != nil {
		return time.UTC
	}
	return time.FixedZone(tz, sign*(hh*3600+mm*60))
}

// Commit is an immutable snapshot record: a tree, zero or more ordered
// parents, author/committer signatures, and a message (§3.4). A merge
// commit has two or more parents.
type Commit struct {
	TreeHash  plumbing.Hash
	Parents   []plumbing.Hash
	Author    Signature
	Committer Signature
	Message   string
	PGPSig    string // armored signature envelope, when a sign hook was invoked
}

func (c *Commit) IsMerge() bool { return len(c.Parents) >= 2 }

// Encode produces the canonical Git commit object payload.
func (c *Commit) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash.String())
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p.String())
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author.String())
	fmt.Fprintf(&buf, "committer %s\n", c.Committer.String())
	if c.PGPSig != "" {
		fmt.Fprintf(&buf, "gpgsig %s\n", strings.ReplaceAll(c.PGPSig, "\n", "\n "))
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// DecodeCommit parses a canonical commit object payload. hashSize
// distinguishes sha1 (20) from sha256 (32) object identifiers.
func DecodeCommit(data []byte, hashSize int) (*Commit, error) {
	c := &Commit{}
	lines := bytes.SplitAfter(data, []byte("\n"))
	i := 0
	for ; i < len(lines); i++ {
		line := string(bytes.TrimSuffix(lines[i], []byte("\n")))
		if line == "" {
			i++
			break
		}
		switch {
		case strings.HasPrefix(line, "tree "):
			h, err := plumbing.NewHashEx(line[len("tree "):])
			if err != nil {
				return nil, err
			}
			if len(h) != hashSize {
				return nil, fmt.Errorf("object: commit tree hash length %d does not match repository hash size %d", len(h), hashSize)
			}
			c.TreeHash = h
		case strings.HasPrefix(line, "parent "):
			h, err := plumbing.NewHashEx(line[len("parent "):])
			if err != nil {
				return nil, err
			}
			c.Parents = append(c.Parents, h)
		case strings.HasPrefix(line, "author "):
			sig, err := DecodeSignature(line[len("author "):])
			if err != nil {
				return nil, err
			}
			c.Author = sig
		case strings.HasPrefix(line, "committer "):
			sig, err := DecodeSignature(line[len("committer "):])
			if err != nil {
				return nil, err
			}
			c.Committer = sig
		case strings.HasPrefix(line, "gpgsig "):
			c.PGPSig = strings.ReplaceAll(line[len("gpgsig "):], "\n ", "\n")
		}
	}
	c.Message = string(bytes.Join(lines[i:], nil))
	return c, nil
}

// Less orders commits for display/iteration purposes by committer time,
// newest first - used by log-like walks, not by MergeBase's DAG walk.
func (c *Commit) Less(other *Commit) bool {
	return c.Committer.When.After(other.Committer.When)
}
