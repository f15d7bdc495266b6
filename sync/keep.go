package sync

import (
	"bufio"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// KeepFileName is the per-directory file listing extra patterns to keep.
// It is never deleted itself.
const KeepFileName = ".zdirkeep"

// KeepList holds glob patterns for entries reconcile must never touch,
// whether or not the manifest lists them.
type KeepList struct {
	patterns []keepPattern
}

type keepPattern struct {
	pattern  string
	dirOnly  bool // trailing / in source line
	anchored bool // leading or inner '/', matched against the full relative path
}

// NewKeepList builds a KeepList from pattern lines. Blank lines and lines
// starting with # are ignored.
func NewKeepList(lines ...string) *KeepList {
	kl := &KeepList{}
	kl.add(lines...)
	return kl
}

// LoadKeepFile reads a keep file and appends its patterns to kl. A missing
// or unreadable file adds nothing.
func (kl *KeepList) LoadKeepFile(fsys afero.Fs, path string) {
	f, err := fsys.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	kl.add(lines...)
}

func (kl *KeepList) add(lines ...string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p := keepPattern{pattern: line}
		if strings.HasSuffix(line, "/") {
			p.pattern = strings.TrimSuffix(line, "/")
			p.dirOnly = true
		}
		if strings.HasPrefix(p.pattern, "/") {
			p.pattern = p.pattern[1:]
			p.anchored = true
		}
		p.anchored = p.anchored || strings.Contains(p.pattern, "/")
		kl.patterns = append(kl.patterns, p)
	}
}

// Len returns the number of patterns.
func (kl *KeepList) Len() int {
	if kl == nil {
		return 0
	}
	return len(kl.patterns)
}

// Matches reports whether the entry at rel (slash-separated, relative to
// the reconcile root) must be kept. Patterns without a slash match the base
// name at any depth; patterns with one match the whole relative path. For
// dirOnly patterns, isDir must be true.
func (kl *KeepList) Matches(rel string, isDir bool) bool {
	if rel == KeepFileName {
		return true
	}
	if kl == nil {
		return false
	}
	base := path.Base(rel)
	for _, p := range kl.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		subject := base
		if p.anchored {
			subject = rel
		}
		if matched, _ := path.Match(p.pattern, subject); matched {
			return true
		}
	}
	return false
}
