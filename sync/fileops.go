package sync

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/afero"
)

// ErrDirNotEmpty is returned by RemoveEmptyDir when the directory still has
// entries. Callers treat it as "leave alone", not as a failure.
var ErrDirNotEmpty = errors.New("directory not empty")

// DeleteFile removes a single non-directory entry. A read-only file is
// made writable and retried once, which Windows requires before removal.
// A file that is already gone counts as deleted.
func DeleteFile(fsys afero.Fs, path string) error {
	err := fsys.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if !errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("remove: %w", err)
	}

	if chErr := fsys.Chmod(path, 0666); chErr != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if err := fsys.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove after chmod: %w", err)
	}
	return nil
}

// RemoveEmptyDir removes path only if it has no entries. It never
// recurses.
func RemoveEmptyDir(fsys afero.Fs, path string) error {
	empty, err := isEmptyDir(fsys, path)
	if err != nil {
		return err
	}
	if !empty {
		return ErrDirNotEmpty
	}
	if err := fsys.Remove(path); err != nil {
		// Something appeared between the check and the remove.
		if again, _ := isEmptyDir(fsys, path); !again {
			return ErrDirNotEmpty
		}
		return fmt.Errorf("rmdir: %w", err)
	}
	return nil
}

func isEmptyDir(fsys afero.Fs, path string) (bool, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return false, fmt.Errorf("open dir: %w", err)
	}
	defer f.Close()

	names, err := f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read dir: %w", err)
	}
	return len(names) == 0, nil
}
