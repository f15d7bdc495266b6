package sync

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zdircomp/zdircomp/manifest"
	"github.com/zdircomp/zdircomp/outcome"
)

func writeTorrent(t *testing.T, path string, files ...[]string) {
	t.Helper()
	var entries []manifest.Node
	for _, comps := range files {
		var parts []manifest.Node
		for _, c := range comps {
			parts = append(parts, manifest.String(c))
		}
		entries = append(entries, manifest.Dict(map[string]manifest.Node{
			"length": manifest.Int(1),
			"path":   manifest.List(parts...),
		}))
	}
	root := manifest.Dict(map[string]manifest.Node{
		"info": manifest.Dict(map[string]manifest.Node{
			"name":  manifest.String("Show"),
			"files": manifest.List(entries...),
		}),
	})
	require.NoError(t, os.WriteFile(path, manifest.Encode(root), 0644))
}

func runFixture(t *testing.T) (torrent, dir string) {
	t.Helper()
	base := t.TempDir()
	dir = filepath.Join(base, "downloads", "Show")
	mkTree(t, dir, "file1.txt", "SubDir/file2.txt", "extra.txt", "EmptyDir/")
	torrent = filepath.Join(base, "show.torrent")
	writeTorrent(t, torrent, []string{"file1.txt"}, []string{"SubDir", "file2.txt"})
	return torrent, dir
}

func TestRun_ReconcilesThenClean(t *testing.T) {
	torrent, dir := runFixture(t)
	fs := afero.NewOsFs()

	o := Run(context.Background(), fs, Options{ManifestPath: torrent, Dir: dir})
	assert.Equal(t, outcome.Reconciled, o.Kind)
	assert.Equal(t, 1, o.DeletedFiles)
	assert.Equal(t, 1, o.RemovedDirs)
	assert.Equal(t, []string{"extra.txt"}, o.Deleted)
	assert.Equal(t, 0, o.ExitCode())
	assert.True(t, exists(dir, "file1.txt"))
	assert.True(t, exists(dir, "SubDir/file2.txt"))
	assert.False(t, exists(dir, "EmptyDir"))

	o = Run(context.Background(), fs, Options{ManifestPath: torrent, Dir: dir})
	assert.Equal(t, outcome.Clean, o.Kind)
	assert.Equal(t, 0, o.ExitCode())
}

func TestRun_DryRunLeavesTree(t *testing.T) {
	torrent, dir := runFixture(t)

	o := Run(context.Background(), afero.NewOsFs(), Options{ManifestPath: torrent, Dir: dir, DryRun: true})
	assert.Equal(t, outcome.Reconciled, o.Kind)
	assert.True(t, o.DryRun)
	assert.Equal(t, 1, o.DeletedFiles)
	assert.True(t, exists(dir, "extra.txt"))
	assert.True(t, exists(dir, "EmptyDir"))
}

func TestRun_KeepPatterns(t *testing.T) {
	torrent, dir := runFixture(t)

	o := Run(context.Background(), afero.NewOsFs(), Options{ManifestPath: torrent, Dir: dir, Keep: []string{"extra.*"}})
	assert.Equal(t, 0, o.DeletedFiles)
	assert.True(t, exists(dir, "extra.txt"))
}

func TestRun_ShallowPath(t *testing.T) {
	torrent, _ := runFixture(t)
	shallow := filepath.VolumeName(torrent) + string(filepath.Separator)

	o := Run(context.Background(), afero.NewOsFs(), Options{ManifestPath: torrent, Dir: shallow})
	assert.Equal(t, outcome.PathTooShallow, o.Kind)
	assert.Equal(t, 1, o.ExitCode())
	assert.NotEmpty(t, o.Detail)
}

func TestRun_ManifestMissing(t *testing.T) {
	_, dir := runFixture(t)

	o := Run(context.Background(), afero.NewOsFs(), Options{ManifestPath: filepath.Join(dir, "nope.torrent"), Dir: dir})
	assert.Equal(t, outcome.ManifestNotFound, o.Kind)
	assert.Equal(t, 1, o.ExitCode())
	assert.True(t, exists(dir, "extra.txt"))
}

func TestRun_ManifestInvalid(t *testing.T) {
	torrent, dir := runFixture(t)
	require.NoError(t, os.WriteFile(torrent, []byte("d4:info"), 0644))

	o := Run(context.Background(), afero.NewOsFs(), Options{ManifestPath: torrent, Dir: dir})
	assert.Equal(t, outcome.ManifestFormatInvalid, o.Kind)
	assert.Equal(t, 1, o.ExitCode())
	assert.True(t, exists(dir, "extra.txt"))
}

func TestRun_DirectoryMissing(t *testing.T) {
	torrent, dir := runFixture(t)

	o := Run(context.Background(), afero.NewOsFs(), Options{ManifestPath: torrent, Dir: filepath.Join(dir, "gone")})
	assert.Equal(t, outcome.DirectoryMissing, o.Kind)
	assert.Equal(t, 0, o.ExitCode())
}

func TestRun_CancelledDuringSettle(t *testing.T) {
	torrent, dir := runFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := Run(ctx, afero.NewOsFs(), Options{ManifestPath: torrent, Dir: dir, Settle: time.Second})
	assert.Equal(t, outcome.Interrupted, o.Kind)
	assert.Equal(t, 1, o.ExitCode())
	assert.True(t, exists(dir, "extra.txt"))
}

func TestRun_KeepsListedNonUTF8Name(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("needs a filesystem that stores raw byte names")
	}
	base := t.TempDir()
	dir := filepath.Join(base, "downloads", "Legacy")
	legacy := "\xcf\xf0\xe8.txt" // cp1251
	mkTree(t, dir, legacy, "junk.txt")
	torrent := filepath.Join(base, "legacy.torrent")
	writeTorrent(t, torrent, []string{legacy})

	o := Run(context.Background(), afero.NewOsFs(), Options{ManifestPath: torrent, Dir: dir})
	assert.Equal(t, outcome.Reconciled, o.Kind)
	assert.Equal(t, []string{"junk.txt"}, o.Deleted)
	assert.True(t, exists(dir, legacy))
}
