package sync

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zdircomp/zdircomp/manifest"
)

func TestReconcile_Scenario(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, "a/b.txt", "c.txt", "a/stray.tmp", "a/empty/")

	expected := manifest.NewFileSet("a/b.txt", "c.txt")
	rep, err := Reconcile(afero.NewOsFs(), root, expected, ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.DeletedFiles)
	assert.Equal(t, 1, rep.RemovedDirs)
	assert.Equal(t, []string{"a/stray.tmp"}, rep.Deleted)
	assert.Equal(t, []string{"a/empty"}, rep.Removed)
	assert.Equal(t, 2, rep.KeptFiles)
	assert.Empty(t, rep.Failures)

	assert.True(t, exists(root, "a/b.txt"))
	assert.True(t, exists(root, "c.txt"))
	assert.False(t, exists(root, "a/stray.tmp"))
	assert.False(t, exists(root, "a/empty"))
}

func TestReconcile_PostOrderPrunesEmptiedParent(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, "x/y")

	rep, err := Reconcile(afero.NewOsFs(), root, manifest.NewFileSet("other.txt"), ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.DeletedFiles)
	assert.Equal(t, 1, rep.RemovedDirs)
	assert.False(t, exists(root, "x/y"))
	assert.False(t, exists(root, "x"))
	assert.True(t, exists(root, ""))
}

func TestReconcile_Idempotent(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, "a/b.txt", "c.txt", "a/stray.tmp", "junk/deeper/file.bin", "a/empty/")
	expected := manifest.NewFileSet("a/b.txt", "c.txt")
	fs := afero.NewOsFs()

	first, err := Reconcile(fs, root, expected, ReconcileOptions{})
	require.NoError(t, err)
	assert.False(t, first.Clean())

	second, err := Reconcile(fs, root, expected, ReconcileOptions{})
	require.NoError(t, err)
	assert.True(t, second.Clean())
	assert.Equal(t, 2, second.KeptFiles)
}

func TestReconcile_LeavesNonEmptyDirs(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, "Season 1/e01.mkv", "Season 1/Sample/sample.mkv", "Extras/")

	rep, err := Reconcile(afero.NewOsFs(), root, manifest.NewFileSet("Season 1/e01.mkv", "Season 1/Sample/sample.mkv"), ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, rep.DeletedFiles)
	assert.Equal(t, 1, rep.RemovedDirs) // Extras
	assert.True(t, exists(root, "Season 1/Sample/sample.mkv"))
	assert.True(t, exists(root, "Season 1"))
}

func TestReconcile_MissingRootIsNoop(t *testing.T) {
	rep, err := Reconcile(afero.NewOsFs(), filepath.Join(t.TempDir(), "gone"), manifest.NewFileSet("a"), ReconcileOptions{})
	require.NoError(t, err)
	assert.True(t, rep.Clean())
}

func TestReconcile_RootIsFile(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, "file")
	_, err := Reconcile(afero.NewOsFs(), filepath.Join(root, "file"), manifest.NewFileSet(), ReconcileOptions{})
	assert.Error(t, err)
}

func TestReconcile_KeepPatterns(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, "movie.mkv", "movie.mkv.!ut", "stray.nfo", "sub/partial.!qB", KeepFileName)
	fs := afero.NewOsFs()

	keep := NewKeepList("*.!ut")
	keep.LoadKeepFile(fs, filepath.Join(root, KeepFileName))
	keep.add("*.!qB")

	rep, err := Reconcile(fs, root, manifest.NewFileSet("movie.mkv"), ReconcileOptions{Keep: keep})
	require.NoError(t, err)

	assert.Equal(t, []string{"stray.nfo"}, rep.Deleted)
	assert.True(t, exists(root, "movie.mkv.!ut"))
	assert.True(t, exists(root, "sub/partial.!qB"))
	assert.True(t, exists(root, KeepFileName))
	assert.True(t, exists(root, "sub"))
}

func TestReconcile_DryRunMatchesRealRun(t *testing.T) {
	entries := []string{"a/b.txt", "c.txt", "a/stray.tmp", "a/empty/", "junk/deeper/file.bin", "mixed/keep.txt", "mixed/drop.txt"}
	expected := manifest.NewFileSet("a/b.txt", "c.txt", "mixed/keep.txt")
	fs := afero.NewOsFs()

	dryRoot := t.TempDir()
	mkTree(t, dryRoot, entries...)
	dry, err := Reconcile(fs, dryRoot, expected, ReconcileOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	for _, e := range entries {
		assert.True(t, exists(dryRoot, e), "dry run removed %s", e)
	}

	realRoot := t.TempDir()
	mkTree(t, realRoot, entries...)
	live, err := Reconcile(fs, realRoot, expected, ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, live.DeletedFiles, dry.DeletedFiles)
	assert.Equal(t, live.RemovedDirs, dry.RemovedDirs)
	assert.Equal(t, live.Deleted, dry.Deleted)
	assert.Equal(t, live.Removed, dry.Removed)
	assert.Equal(t, []string{"a/empty", "junk/deeper", "junk"}, live.Removed)
}

func TestReconcile_FailuresAreRecorded(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/dl/show/a", 0755))
	require.NoError(t, afero.WriteFile(mem, "/dl/show/a/stray.tmp", []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(mem, "/dl/show/keep.txt", []byte("x"), 0644))

	ro := afero.NewReadOnlyFs(mem)
	rep, err := Reconcile(ro, "/dl/show", manifest.NewFileSet("keep.txt"), ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, rep.DeletedFiles)
	assert.Equal(t, 0, rep.RemovedDirs)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "a/stray.tmp", rep.Failures[0].Path)
	assert.Equal(t, "delete", rep.Failures[0].Op)
	assert.Contains(t, rep.Failures[0].String(), "delete a/stray.tmp")
}

func TestReconcile_MemFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/dl/show/a/empty", 0755))
	require.NoError(t, afero.WriteFile(fs, "/dl/show/a/b.txt", []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/dl/show/a/stray.tmp", []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/dl/show/c.txt", []byte("x"), 0644))

	rep, err := Reconcile(fs, "/dl/show", manifest.NewFileSet("a/b.txt", "c.txt"), ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.DeletedFiles)
	assert.Equal(t, 1, rep.RemovedDirs)

	ok, _ := afero.Exists(fs, "/dl/show/a/b.txt")
	assert.True(t, ok)
	ok, _ = afero.DirExists(fs, "/dl/show/a/empty")
	assert.False(t, ok)
}

func TestReconcile_UnreadableDirFailsOnce(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/dl/show/x/a.txt", []byte("a"), 0644))
	require.NoError(t, afero.WriteFile(mem, "/dl/show/y.txt", []byte("y"), 0644))
	fsys := deniedDirFs{Fs: mem, denied: "/dl/show/x"}

	rep, err := Reconcile(fsys, "/dl/show", manifest.NewFileSet(), ReconcileOptions{})
	require.NoError(t, err)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "readdir", rep.Failures[0].Op)
	assert.Equal(t, "x", rep.Failures[0].Path)
	assert.Equal(t, []string{"y.txt"}, rep.Deleted)
	assert.Equal(t, 0, rep.RemovedDirs)

	ok, _ := afero.Exists(mem, "/dl/show/x/a.txt")
	assert.True(t, ok)
}
