// Package ignore implements C10: a literal-prefix and glob matcher used to
// exclude paths from a walk, grounded on the teacher's plain
// path/filepath-based matching in storage/schema_fs.go (no regex library is
// used there for path matching, so none is introduced here either).
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Matcher holds a set of ignore rules, applied relative to the tree root.
// Rules are case-sensitive, matched against forward-slash-joined relative
// paths.
type Matcher struct {
	patterns []string
}

// New builds a Matcher from a list of patterns. Each pattern is either a
// literal path/prefix or a glob understood by path/filepath.Match.
func New(patterns []string) *Matcher {
	m := &Matcher{patterns: make([]string, len(patterns))}
	copy(m.patterns, patterns)
	return m
}

// Match reports whether relPath (or one of its ancestors) matches any
// pattern, meaning the walker should prune the entire subtree at relPath.
func (m *Matcher) Match(relPath string) bool {
	for _, pat := range m.patterns {
		if matchesOne(pat, relPath) {
			return true
		}
	}
	return false
}

// LoadFile reads one pattern per line from path (the repository's
// .fractylignore, by convention), skipping blank lines and lines starting
// with "#". A missing file yields an empty Matcher rather than an error,
// matching the teacher's tolerant-read posture toward optional files
// (storage/persistence-files.go's schema.json.old fallback).
func LoadFile(path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return New(patterns), nil
}

func matchesOne(pattern, relPath string) bool {
	// Literal prefix match: "build" ignores "build" and everything under it.
	if relPath == pattern {
		return true
	}
	if len(relPath) > len(pattern) && relPath[:len(pattern)] == pattern && relPath[len(pattern)] == '/' {
		return true
	}
	// Glob match against the full relative path and against the base name,
	// so a pattern like "*.tmp" matches at any depth.
	if ok, _ := filepath.Match(pattern, relPath); ok {
		return true
	}
	if ok, _ := filepath.Match(pattern, filepath.Base(relPath)); ok {
		return true
	}
	return false
}
