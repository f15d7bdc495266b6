//go:build !windows

package unlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// pollInterval is how often Shutdown checks whether terminated lockers
// have exited.
const pollInterval = 100 * time.Millisecond

// procTable is the Coordinator for hosts without Restart Manager. It finds
// lockers by scanning every process's open files, so it only sees
// processes the current user may inspect.
type procTable struct {
	grace    time.Duration
	next     Handle
	sessions map[Handle]map[string]struct{}
}

// NewCoordinator returns the platform Coordinator. grace is how long
// Shutdown waits after SIGTERM before killing.
func NewCoordinator(grace time.Duration) Coordinator {
	return &procTable{grace: grace, sessions: make(map[Handle]map[string]struct{})}
}

func (t *procTable) Start() (Handle, error) {
	t.next++
	t.sessions[t.next] = make(map[string]struct{})
	return t.next, nil
}

func (t *procTable) paths(h Handle) (map[string]struct{}, error) {
	paths, ok := t.sessions[h]
	if !ok {
		return nil, fmt.Errorf("unknown session %d", h)
	}
	return paths, nil
}

func (t *procTable) Register(h Handle, paths []string) error {
	set, err := t.paths(h)
	if err != nil {
		return err
	}
	for _, p := range paths {
		set[filepath.Clean(p)] = struct{}{}
	}
	return nil
}

// lockers scans the process table for processes with a registered path
// open. Processes whose files cannot be read are skipped.
func (t *procTable) lockers(h Handle) ([]*process.Process, error) {
	set, err := t.paths(h)
	if err != nil {
		return nil, err
	}
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	self := int32(os.Getpid())
	var out []*process.Process
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		files, err := p.OpenFiles()
		if err != nil {
			continue
		}
		for _, f := range files {
			if _, ok := set[filepath.Clean(f.Path)]; ok {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (t *procTable) List(h Handle, buf []LockingProcess) (needed, filled int, err error) {
	procs, err := t.lockers(h)
	if err != nil {
		return 0, 0, err
	}
	for i, p := range procs {
		if i >= len(buf) {
			break
		}
		name, _ := p.Name()
		buf[i] = LockingProcess{PID: p.Pid, Name: name}
		filled++
	}
	if filled < len(procs) {
		return len(procs), filled, ErrMoreData
	}
	return len(procs), filled, nil
}

func (t *procTable) Shutdown(h Handle) error {
	procs, err := t.lockers(h)
	if err != nil {
		return err
	}
	l := sub()

	var errs []error
	pending := procs[:0]
	for _, p := range procs {
		if err := p.Terminate(); err != nil {
			if !errors.Is(err, process.ErrorProcessNotRunning) {
				l.Debug("terminate failed, will kill", "pid", p.Pid, "err", err)
				pending = append(pending, p)
			}
			continue
		}
		pending = append(pending, p)
	}

	deadline := time.Now().Add(t.grace)
	for len(pending) > 0 && time.Now().Before(deadline) {
		time.Sleep(pollInterval)
		pending = stillRunning(pending)
	}

	for _, p := range pending {
		if err := p.Kill(); err != nil && !errors.Is(err, process.ErrorProcessNotRunning) {
			errs = append(errs, fmt.Errorf("kill %d: %w", p.Pid, err))
		}
	}
	return errors.Join(errs...)
}

func stillRunning(procs []*process.Process) []*process.Process {
	out := procs[:0]
	for _, p := range procs {
		if running, err := p.IsRunning(); err == nil && running {
			out = append(out, p)
		}
	}
	return out
}

func (t *procTable) End(h Handle) error {
	if _, err := t.paths(h); err != nil {
		return err
	}
	delete(t.sessions, h)
	return nil
}
