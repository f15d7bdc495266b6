package unlock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v4/process"
)

// Policy selects how lockers are stopped.
type Policy string

const (
	// Unconditional hands every locker to Coordinator.Shutdown.
	Unconditional Policy = "unconditional"
	// Selective kills lockers one by one, sparing excluded names.
	Selective Policy = "selective"
)

// ParsePolicy accepts a policy name, case-insensitively. Empty means
// Unconditional.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Unconditional:
		return Unconditional, nil
	case Selective:
		return Selective, nil
	}
	return "", fmt.Errorf("unknown unlock policy %q (want %s or %s)", s, Unconditional, Selective)
}

// ErrProcessGone reports that a process exited before it could be named
// or killed.
var ErrProcessGone = errors.New("process no longer running")

// Killer resolves and terminates individual processes for the Selective
// policy.
type Killer interface {
	Name(pid int32) (string, error)
	Kill(pid int32) error
}

// NewKiller returns a Killer backed by the host process table.
func NewKiller() Killer { return processKiller{} }

type processKiller struct{}

func (processKiller) open(pid int32) (*process.Process, error) {
	p, err := process.NewProcess(pid)
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return nil, ErrProcessGone
	}
	return p, err
}

func (k processKiller) Name(pid int32) (string, error) {
	p, err := k.open(pid)
	if err != nil {
		return "", err
	}
	return p.Name()
}

func (k processKiller) Kill(pid int32) error {
	p, err := k.open(pid)
	if err != nil {
		return err
	}
	if err := p.Kill(); err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return ErrProcessGone
		}
		return err
	}
	return nil
}

// Result is what a policy did.
type Result struct {
	Terminated int
	Skipped    []string
	Failures   []string
}

// applyUnconditional stops every holder through the session. It needs only
// the holder count, not the list.
func applyUnconditional(s *Session, holders int) (Result, error) {
	if err := s.Shutdown(); err != nil {
		return Result{}, err
	}
	return Result{Terminated: holders}, nil
}

// applySelective kills each locker whose name is not in exclude. Names are
// compared case-insensitively. Excluded processes and processes that have
// already exited are skipped; other kill errors are recorded and the loop
// continues.
func applySelective(ctx context.Context, k Killer, procs []LockingProcess, exclude []string) (Result, error) {
	l := sub()
	excluded := lo.SliceToMap(exclude, func(name string) (string, struct{}) {
		return strings.ToLower(name), struct{}{}
	})

	var res Result
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		name, err := k.Name(p.PID)
		switch {
		case errors.Is(err, ErrProcessGone):
			l.Debug("locker already exited", "pid", p.PID)
			res.Skipped = append(res.Skipped, displayName(p.Name, p.PID))
			continue
		case err != nil || name == "":
			name = p.Name
		}

		if _, ok := excluded[strings.ToLower(name)]; ok {
			l.Info("sparing excluded process", "pid", p.PID, "name", name)
			res.Skipped = append(res.Skipped, displayName(name, p.PID))
			continue
		}

		switch err := k.Kill(p.PID); {
		case errors.Is(err, ErrProcessGone):
			res.Skipped = append(res.Skipped, displayName(name, p.PID))
		case err != nil:
			l.Warn("kill failed", "pid", p.PID, "name", name, "err", err)
			res.Failures = append(res.Failures, fmt.Sprintf("kill %s: %v", displayName(name, p.PID), err))
		default:
			l.Info("terminated locker", "pid", p.PID, "name", name)
			res.Terminated++
		}
	}
	return res, nil
}

func displayName(name string, pid int32) string {
	if name == "" {
		return fmt.Sprintf("pid %d", pid)
	}
	return name
}
