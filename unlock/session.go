package unlock

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionState is returned when a Session method is called out of
	// order: before Open, after Close, or before Register where paths are
	// required.
	ErrSessionState = errors.New("operation not valid in current session state")

	// ErrMoreData is returned by Coordinator.List when the buffer is too
	// small for every locker.
	ErrMoreData = errors.New("more data is available")
)

// SessionError reports a failed session step.
type SessionError struct {
	Op    string
	State State
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("unlock session %s (%s): %v", e.Op, e.State, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// State is the lifecycle position of a Session.
type State int

const (
	Created State = iota
	Opened
	Registered
	Queried
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Opened:
		return "opened"
	case Registered:
		return "registered"
	case Queried:
		return "queried"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// listSlack is the headroom added to the sized buffer so a locker that
// appears between the two List calls still fits.
const listSlack = 4

// Session walks a Coordinator through open, register, query and close.
// A Session is not safe for concurrent use.
//
// Once Open succeeds the caller must call Close on every path, typically
// with defer. Close is idempotent.
type Session struct {
	c     Coordinator
	h     Handle
	state State

	reported int // holder count from the last query
}

// NewSession returns a Session in the Created state.
func NewSession(c Coordinator) *Session {
	return &Session{c: c}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

func (s *Session) check(op string, allowed ...State) error {
	for _, a := range allowed {
		if s.state == a {
			return nil
		}
	}
	return &SessionError{Op: op, State: s.state, Err: ErrSessionState}
}

// Open starts the coordinator session. On failure nothing is held and the
// Session stays Created.
func (s *Session) Open() error {
	if err := s.check("open", Created); err != nil {
		return err
	}
	h, err := s.c.Start()
	if err != nil {
		return &SessionError{Op: "open", State: s.state, Err: err}
	}
	s.h = h
	s.state = Opened
	return nil
}

// Register adds paths to the session. It may be called more than once
// before the first query.
func (s *Session) Register(paths []string) error {
	if err := s.check("register", Opened, Registered); err != nil {
		return err
	}
	if err := s.c.Register(s.h, paths); err != nil {
		return &SessionError{Op: "register", State: s.state, Err: err}
	}
	s.state = Registered
	return nil
}

// LockingProcesses lists the processes holding any registered path open.
//
// The count is taken first and the list fetched second. If the list grew
// in between, whatever the coordinator managed to fill is returned.
func (s *Session) LockingProcesses() ([]LockingProcess, error) {
	if err := s.check("list", Registered, Queried); err != nil {
		return nil, err
	}
	l := sub()

	needed, _, err := s.c.List(s.h, nil)
	if err != nil && !errors.Is(err, ErrMoreData) {
		return nil, &SessionError{Op: "list", State: s.state, Err: err}
	}
	s.state = Queried
	s.reported = needed
	if needed == 0 {
		return nil, nil
	}

	buf := make([]LockingProcess, needed+listSlack)
	again, filled, err := s.c.List(s.h, buf)
	switch {
	case errors.Is(err, ErrMoreData):
		l.Warn("locker list grew while querying, using partial list", "sized", needed, "now", again, "got", filled)
	case err != nil:
		return nil, &SessionError{Op: "list", State: s.state, Err: err}
	}
	filled = min(filled, len(buf))
	s.reported = max(needed, again, filled)
	return buf[:filled], nil
}

// Reported returns how many holders the coordinator counted in the last
// query. It can exceed the length of the returned list when the list grew
// between the count and the fetch.
func (s *Session) Reported() int { return s.reported }

// Shutdown asks the coordinator to stop every locker.
func (s *Session) Shutdown() error {
	if err := s.check("shutdown", Registered, Queried); err != nil {
		return err
	}
	if err := s.c.Shutdown(s.h); err != nil {
		return &SessionError{Op: "shutdown", State: s.state, Err: err}
	}
	return nil
}

// Close ends the session. Closing a Session that was never opened, or is
// already closed, does nothing.
func (s *Session) Close() error {
	switch s.state {
	case Closed:
		return nil
	case Created:
		s.state = Closed
		return nil
	}
	s.state = Closed
	if err := s.c.End(s.h); err != nil {
		return &SessionError{Op: "close", State: Closed, Err: err}
	}
	return nil
}
