package sync

import (
	"fmt"
)

// ItemFailure records one entry that could not be deleted or read. The
// walk continues past it.
type ItemFailure struct {
	Path string `json:"path"` // relative to the reconcile root
	Op   string `json:"op"`   // "delete", "rmdir", "readdir"
	Err  error  `json:"-"`
}

func (f ItemFailure) String() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.Path, f.Err)
}

// Report aggregates one reconcile pass.
type Report struct {
	DeletedFiles int
	RemovedDirs  int
	KeptFiles    int
	Deleted      []string // relative paths, slash-separated
	Removed      []string
	Failures     []ItemFailure
	DryRun       bool
}

// Clean reports whether the pass deleted nothing.
func (r Report) Clean() bool {
	return r.DeletedFiles == 0 && r.RemovedDirs == 0
}

func (r *Report) fail(rel, op string, err error) {
	r.Failures = append(r.Failures, ItemFailure{Path: rel, Op: op, Err: err})
}
