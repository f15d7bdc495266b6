package sync

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	"github.com/spf13/afero"
)

// WalkEntry is one filesystem object visited by WalkPostOrder.
type WalkEntry struct {
	Path    string // absolute (root-joined) path
	Rel     string // slash-separated path relative to the walk root
	IsDir   bool
	Skipped bool // matched WalkOptions.Skip; not descended, not acted on
}

// WalkFunc is called once per entry. A non-nil err means the directory at
// e could not be listed; its children were not visited. Returning an error
// stops the walk.
type WalkFunc func(e WalkEntry, err error) error

// WalkOptions tunes WalkPostOrder.
type WalkOptions struct {
	// Skip is consulted before an entry is descended or visited.
	Skip func(rel string, isDir bool) bool
}

// WalkPostOrder visits every descendant of root, never root itself, such
// that a directory is visited only after everything beneath it. Within a
// directory, subdirectories are descended first, then files are visited,
// then the subdirectories themselves. Siblings are in natural order.
// Symlinks are visited as files and never followed.
//
// Only failure to list root is returned as an error.
func WalkPostOrder(fsys afero.Fs, root string, opts WalkOptions, fn WalkFunc) error {
	infos, err := afero.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read root: %w", err)
	}
	return walkChildren(fsys, root, "", infos, opts, fn)
}

func walkChildren(fsys afero.Fs, dir, rel string, infos []os.FileInfo, opts WalkOptions, fn WalkFunc) error {
	sort.Slice(infos, func(i, j int) bool {
		return natural.Less(infos[i].Name(), infos[j].Name())
	})

	var dirs, files []WalkEntry
	for _, info := range infos {
		e := WalkEntry{
			Path:  filepath.Join(dir, info.Name()),
			Rel:   path.Join(rel, info.Name()),
			IsDir: info.IsDir(),
		}
		if opts.Skip != nil && opts.Skip(e.Rel, e.IsDir) {
			e.Skipped = true
		}
		if e.IsDir {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}

	// unreadable dirs were already reported with their error.
	unreadable := make([]bool, len(dirs))
	for i, d := range dirs {
		if d.Skipped {
			continue
		}
		children, err := afero.ReadDir(fsys, d.Path)
		if err != nil {
			unreadable[i] = true
			if ferr := fn(d, err); ferr != nil {
				return ferr
			}
			continue
		}
		if err := walkChildren(fsys, d.Path, d.Rel, children, opts, fn); err != nil {
			return err
		}
	}

	for _, f := range files {
		if err := fn(f, nil); err != nil {
			return err
		}
	}

	for i, d := range dirs {
		if unreadable[i] {
			continue
		}
		if err := fn(d, nil); err != nil {
			return err
		}
	}
	return nil
}

// CollectFiles returns the absolute paths of every non-directory entry
// under root, in walk order.
func CollectFiles(fsys afero.Fs, root string) ([]string, error) {
	var out []string
	err := WalkPostOrder(fsys, root, WalkOptions{}, func(e WalkEntry, err error) error {
		if err != nil {
			sub("scanner").Warn("collect: unreadable directory", "path", e.Path, "err", err)
			return nil
		}
		if !e.IsDir {
			out = append(out, e.Path)
		}
		return nil
	})
	return out, err
}
