// Package outcome is the structured result of a sync or unlock run, the
// one-line summary written to the log and the exit status derived from it.
package outcome

import (
	"fmt"
	"strings"
)

// Command names the pipeline that produced an Outcome.
type Command string

const (
	Sync   Command = "sync"
	Unlock Command = "unlock"
)

// Kind classifies an Outcome.
type Kind string

const (
	Reconciled            Kind = "reconciled"
	Clean                 Kind = "clean"
	DirectoryMissing      Kind = "directory_missing"
	ManifestNotFound      Kind = "manifest_not_found"
	ManifestFormatInvalid Kind = "manifest_format_invalid"
	PathTooShallow        Kind = "path_too_shallow"
	Unlocked              Kind = "unlocked"
	NoLocksFound          Kind = "no_locks_found"
	SessionError          Kind = "session_error"
	Interrupted           Kind = "interrupted"
)

// Outcome is what a pipeline reports. Count fields are only meaningful for
// the kinds that carry them.
type Outcome struct {
	Command Command `json:"command" yaml:"command"`
	Path    string  `json:"path" yaml:"path"`
	Kind    Kind    `json:"kind" yaml:"kind"`

	DeletedFiles int      `json:"deleted_files,omitempty" yaml:"deleted_files,omitempty"`
	RemovedDirs  int      `json:"removed_dirs,omitempty" yaml:"removed_dirs,omitempty"`
	Deleted      []string `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	DryRun       bool     `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`

	Found      int      `json:"found,omitempty" yaml:"found,omitempty"`
	Terminated int      `json:"terminated,omitempty" yaml:"terminated,omitempty"`
	Skipped    []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	Failures []string `json:"failures,omitempty" yaml:"failures,omitempty"`
	Detail   string   `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Failed reports whether the outcome maps to a failure exit status.
// Per-item failures absorbed into a report do not count.
func (o Outcome) Failed() bool {
	switch o.Kind {
	case PathTooShallow, ManifestNotFound, ManifestFormatInvalid, Interrupted:
		return true
	}
	return false
}

// ExitCode is the process exit status for o.
func (o Outcome) ExitCode() int {
	if o.Failed() {
		return 1
	}
	return 0
}

// Summary is the human-readable line for the log.
func (o Outcome) Summary() string {
	prefix := fmt.Sprintf("%s %q - ", strings.ToUpper(string(o.Command)), o.Path)
	return prefix + o.describe()
}

func (o Outcome) describe() string {
	switch o.Kind {
	case PathTooShallow:
		return "path too shallow, aborted"
	case ManifestNotFound, ManifestFormatInvalid, SessionError:
		return o.Detail
	case DirectoryMissing:
		return "directory does not exist, skipped"
	case Interrupted:
		return "interrupted"
	case Clean:
		return "clean, nothing to remove"
	case Reconciled:
		verb := "deleted"
		if o.DryRun {
			verb = "would delete"
		}
		s := fmt.Sprintf("%s %d files, %d empty dirs", verb, o.DeletedFiles, o.RemovedDirs)
		if len(o.Failures) > 0 {
			s += fmt.Sprintf(", %d failures", len(o.Failures))
		}
		return s
	case NoLocksFound:
		if o.Detail != "" {
			return o.Detail
		}
		return "no locking processes found"
	case Unlocked:
		s := fmt.Sprintf("terminated %d locking process(es)", o.Terminated)
		if len(o.Skipped) > 0 {
			s += fmt.Sprintf(", skipped %s", strings.Join(o.Skipped, ", "))
		}
		if len(o.Failures) > 0 {
			s += fmt.Sprintf(", %d failures", len(o.Failures))
		}
		if o.Detail != "" {
			s += " (" + o.Detail + ")"
		}
		return s
	}
	return string(o.Kind)
}
