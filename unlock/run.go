package unlock

import (
	"context"
	"errors"
	"io/fs"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/zdircomp/zdircomp/outcome"
	"github.com/zdircomp/zdircomp/pathguard"
	"github.com/zdircomp/zdircomp/sync"
)

// Options configures Run.
type Options struct {
	Dir     string
	Policy  Policy
	Exclude []string // process names Selective never kills
	Grace   time.Duration

	// Coordinator and Killer default to the host implementations.
	Coordinator Coordinator
	Killer      Killer
}

// Run stops every process holding a file under opts.Dir open.
func Run(ctx context.Context, fsys afero.Fs, opts Options) outcome.Outcome {
	l := sub()
	o := outcome.Outcome{Command: outcome.Unlock, Path: opts.Dir}

	if err := pathguard.Validate(opts.Dir); err != nil {
		l.Warn("refusing shallow path", "dir", opts.Dir, "err", err)
		o.Kind = outcome.PathTooShallow
		o.Detail = err.Error()
		return o
	}

	if _, err := fsys.Stat(opts.Dir); errors.Is(err, fs.ErrNotExist) {
		o.Kind = outcome.NoLocksFound
		o.Detail = "directory does not exist, skipped"
		return o
	}

	files, err := sync.CollectFiles(fsys, opts.Dir)
	if err != nil {
		o.Kind = outcome.SessionError
		o.Detail = "collect files: " + err.Error()
		return o
	}
	if len(files) == 0 {
		o.Kind = outcome.NoLocksFound
		o.Detail = "no files found, skipped"
		return o
	}
	l.Debug("registering files", "dir", opts.Dir, "files", len(files))

	c := opts.Coordinator
	if c == nil {
		c = NewCoordinator(opts.Grace)
	}
	s := NewSession(c)
	if err := s.Open(); err != nil {
		return sessionFailed(o, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			l.Warn("closing session", "err", err)
		}
	}()

	if err := s.Register(files); err != nil {
		return sessionFailed(o, err)
	}
	procs, err := s.LockingProcesses()
	if err != nil {
		return sessionFailed(o, err)
	}
	holders := max(s.Reported(), len(procs))
	o.Found = holders
	if holders == 0 {
		o.Kind = outcome.NoLocksFound
		return o
	}
	if err := ctx.Err(); err != nil {
		o.Kind = outcome.Interrupted
		o.Detail = err.Error()
		return o
	}

	var res Result
	switch opts.Policy {
	case Selective:
		if len(procs) == 0 {
			l.Warn("holders reported but none listed", "dir", opts.Dir, "holders", holders)
			o.Kind = outcome.SessionError
			o.Detail = plural(holders) + " reported locking but the list could not be fetched"
			return o
		}
		k := opts.Killer
		if k == nil {
			k = NewKiller()
		}
		res, err = applySelective(ctx, k, procs, opts.Exclude)
		if err != nil {
			o.Kind = outcome.Interrupted
			o.Detail = err.Error()
			o.Terminated = res.Terminated
			return o
		}
	default:
		res, err = applyUnconditional(s, holders)
		if err != nil {
			o = sessionFailed(o, err)
			o.Detail += ", " + plural(holders) + " may still be locking"
			return o
		}
	}

	o.Kind = outcome.Unlocked
	o.Terminated = res.Terminated
	o.Skipped = res.Skipped
	o.Failures = res.Failures
	return o
}

func sessionFailed(o outcome.Outcome, err error) outcome.Outcome {
	sub().Error("session failed", "dir", o.Path, "err", err)
	o.Kind = outcome.SessionError
	o.Detail = err.Error()
	return o
}

func plural(n int) string {
	if n == 1 {
		return "1 process"
	}
	return strconv.Itoa(n) + " processes"
}
