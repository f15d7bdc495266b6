// Package pathguard rejects paths that are too shallow to be rewritten safely.
//
// A shallow directory such as a drive root or a first-level folder usually
// holds unrelated downloads side by side, so every destructive walk must pass
// Validate before it touches anything.
package pathguard

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// MinComponents is the number of named components required below the root.
const MinComponents = 2

// ErrShallowPath matches every *ShallowPathError.
var ErrShallowPath = errors.New("path too shallow")

// windowsHost controls whether a bare leading separator counts as a root.
var windowsHost = runtime.GOOS == "windows"

// ShallowPathError reports a path rejected by Validate.
type ShallowPathError struct {
	Path        string
	Components  int
	Unqualified bool // no root at all (relative or drive-relative)
}

func (e *ShallowPathError) Error() string {
	if e.Unqualified {
		return fmt.Sprintf("path %q is not absolute", e.Path)
	}
	return fmt.Sprintf("path %q too shallow: %d component(s) below root, need %d", e.Path, e.Components, MinComponents)
}

func (e *ShallowPathError) Is(target error) bool {
	return target == ErrShallowPath
}

// Validate returns nil when path has at least MinComponents named components
// below its root. It is purely lexical and never touches the filesystem.
func Validate(path string) error {
	root, parts, ok := Split(path)
	if !ok || root == "" {
		return &ShallowPathError{Path: path, Unqualified: true}
	}
	if len(parts) < MinComponents {
		return &ShallowPathError{Path: path, Components: len(parts)}
	}
	return nil
}

// Split decomposes path into its root and cleaned named components.
// "." components are dropped and ".." removes the previous one; ".." at the
// root stays at the root. ok is false when the path has no root.
func Split(path string) (root string, parts []string, ok bool) {
	root, rest, winSeps := splitRoot(path)
	if root == "" {
		return "", nil, false
	}

	isSep := func(r rune) bool { return r == '/' }
	if winSeps {
		isSep = func(r rune) bool { return r == '/' || r == '\\' }
	}

	for _, p := range strings.FieldsFunc(rest, isSep) {
		switch p {
		case ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, p)
		}
	}
	return root, parts, true
}

// splitRoot recognises drive (C:\), UNC (\\server\share\), extended-length
// (\\?\C:\, \\?\UNC\server\share\) and POSIX (/) roots.
func splitRoot(path string) (root, rest string, winSeps bool) {
	if p, ok := strings.CutPrefix(path, `\\?\`); ok {
		if unc, ok := cutPrefixFold(p, `UNC\`); ok {
			return splitRoot(`\\` + unc)
		}
		return splitRoot(p)
	}
	if p, ok := strings.CutPrefix(path, `\\.\`); ok {
		return splitRoot(p)
	}

	if len(path) >= 2 && isDriveLetter(path[0]) && path[1] == ':' {
		if len(path) >= 3 && (path[2] == '\\' || path[2] == '/') {
			return strings.ToUpper(path[:1]) + `:\`, path[3:], true
		}
		return "", "", true // drive-relative, e.g. C:foo
	}

	if strings.HasPrefix(path, `\\`) || (windowsHost && strings.HasPrefix(path, `//`)) {
		return splitUNC(path[2:])
	}

	if strings.HasPrefix(path, "/") || (windowsHost && strings.HasPrefix(path, `\`)) {
		if windowsHost {
			return "", "", true // rooted but no volume
		}
		return "/", path[1:], false
	}

	return "", "", windowsHost
}

func splitUNC(p string) (root, rest string, winSeps bool) {
	isSep := func(r rune) bool { return r == '/' || r == '\\' }
	fields := strings.FieldsFunc(p, isSep)
	if len(fields) < 2 {
		return "", "", true
	}
	root = `\\` + fields[0] + `\` + fields[1] + `\`
	return root, strings.Join(fields[2:], `\`), true
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
