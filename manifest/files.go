package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
)

// FileSet is the set of relative paths a torrent is expected to contain.
// Paths are stored slash-separated and NFC-normalized.
type FileSet struct {
	paths map[string]struct{}
}

// NewFileSet builds a set from relative paths in slash or OS form.
func NewFileSet(paths ...string) FileSet {
	s := FileSet{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		s.paths[Key(p)] = struct{}{}
	}
	return s
}

// Key returns the membership key for a relative path. Names read from
// disk get the same lossy conversion as descriptor text, so a listed file
// whose name is not valid UTF-8 still matches itself.
func Key(rel string) string {
	return Text([]byte(filepath.ToSlash(rel)))
}

// Text converts raw bytes from a descriptor into path text. Invalid UTF-8
// is replaced rather than rejected so foreign filenames never abort a run.
func Text(b []byte) string {
	return norm.NFC.String(strings.ToValidUTF8(string(b), "\uFFFD"))
}

// Len returns the number of paths in the set.
func (s FileSet) Len() int { return len(s.paths) }

// Contains reports whether rel (slash or OS form) is in the set.
func (s FileSet) Contains(rel string) bool {
	_, ok := s.paths[Key(rel)]
	return ok
}

// Paths returns the members in sorted order.
func (s FileSet) Paths() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ProjectFiles extracts the expected file set from a decoded descriptor.
// Multi-file descriptors list info.files[].path; v2 descriptors carry an
// info["file tree"]; single-file descriptors only name the file in info.name.
func ProjectFiles(root Node) (FileSet, error) {
	info, ok := root.Get("info")
	if !ok || info.Kind() != KindDict {
		return FileSet{}, formatErrorf(-1, "missing info dictionary")
	}

	if files, ok := info.Get("files"); ok {
		return projectFileList(files)
	}
	if tree, ok := info.Get("file tree"); ok {
		return projectFileTree(tree)
	}
	if name, ok := textField(info, "name"); ok {
		if err := checkComponent(name); err != nil {
			return FileSet{}, fmt.Errorf("info.name: %w", err)
		}
		return NewFileSet(name), nil
	}
	return FileSet{}, formatErrorf(-1, "no files or name in info dictionary")
}

func projectFileList(files Node) (FileSet, error) {
	list, ok := files.AsList()
	if !ok {
		return FileSet{}, formatErrorf(-1, "info.files is a %s, want list", files.Kind())
	}

	set := FileSet{paths: make(map[string]struct{}, len(list))}
	for i, entry := range list {
		comps, ok := pathField(entry, "path")
		if !ok {
			return FileSet{}, formatErrorf(-1, "info.files[%d] missing path list of byte strings", i)
		}
		if utf8Comps, ok := pathField(entry, "path.utf-8"); ok {
			comps = utf8Comps
		}
		rel, err := joinComponents(comps)
		if err != nil {
			return FileSet{}, fmt.Errorf("info.files[%d]: %w", i, err)
		}
		set.paths[Key(rel)] = struct{}{}
	}
	return set, nil
}

// projectFileTree walks a BEP 52 file tree. A node holding the empty key is
// a file; every other key is a path component.
func projectFileTree(tree Node) (FileSet, error) {
	if tree.Kind() != KindDict {
		return FileSet{}, formatErrorf(-1, "info[\"file tree\"] is a %s, want dictionary", tree.Kind())
	}

	type item struct {
		node  Node
		comps []string
	}
	set := FileSet{paths: make(map[string]struct{})}
	stack := []item{{node: tree}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, k := range it.node.Keys() {
			child := it.node.dict[k]
			if k == "" {
				if len(it.comps) == 0 {
					return FileSet{}, formatErrorf(-1, "file tree has a file at its root")
				}
				rel, err := joinComponents(it.comps)
				if err != nil {
					return FileSet{}, fmt.Errorf("file tree: %w", err)
				}
				set.paths[Key(rel)] = struct{}{}
				continue
			}
			if child.Kind() != KindDict {
				return FileSet{}, formatErrorf(-1, "file tree entry %q is a %s, want dictionary", k, child.Kind())
			}
			comps := append(append([]string{}, it.comps...), Text([]byte(k)))
			stack = append(stack, item{node: child, comps: comps})
		}
	}
	if set.Len() == 0 {
		return FileSet{}, formatErrorf(-1, "file tree lists no files")
	}
	return set, nil
}

// textField prefers the .utf-8 variant of a byte string field when present.
func textField(d Node, key string) (string, bool) {
	if v, ok := d.Get(key + ".utf-8"); ok {
		if s, ok := v.AsText(); ok {
			return s, true
		}
	}
	v, ok := d.Get(key)
	if !ok {
		return "", false
	}
	return v.AsText()
}

func pathField(entry Node, key string) ([]string, bool) {
	v, ok := entry.Get(key)
	if !ok {
		return nil, false
	}
	items, ok := v.AsList()
	if !ok {
		return nil, false
	}
	comps := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.AsText()
		if !ok {
			return nil, false
		}
		comps = append(comps, s)
	}
	return comps, true
}

func joinComponents(comps []string) (string, error) {
	if len(comps) == 0 {
		return "", formatErrorf(-1, "empty path")
	}
	for _, c := range comps {
		if err := checkComponent(c); err != nil {
			return "", err
		}
	}
	return strings.Join(comps, "/"), nil
}

// checkComponent rejects anything that is not a single plain name: empty,
// "." or "..", or containing a separator or NUL.
func checkComponent(c string) error {
	switch {
	case c == "":
		return formatErrorf(-1, "empty path component")
	case c == "." || c == "..":
		return formatErrorf(-1, "path component %q traverses directories", c)
	case strings.ContainsAny(c, "/\\\x00"):
		return formatErrorf(-1, "path component %q contains a separator", c)
	}
	return nil
}

// Parse decodes a descriptor and projects its file set.
func Parse(data []byte) (FileSet, error) {
	root, err := Decode(data)
	if err != nil {
		return FileSet{}, err
	}
	return ProjectFiles(root)
}

// Load reads the descriptor at path from fsys and projects its file set.
func Load(fsys afero.Fs, path string) (FileSet, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileSet{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return FileSet{}, fmt.Errorf("read manifest: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return FileSet{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return set, nil
}
