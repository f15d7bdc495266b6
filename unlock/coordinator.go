package unlock

// Handle identifies a coordinator session. Its meaning is private to the
// Coordinator that issued it.
type Handle uint32

// LockingProcess is a process holding one of the registered files open.
// Name is whatever the coordinator reported and may be empty.
type LockingProcess struct {
	PID  int32  `json:"pid" yaml:"pid"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Coordinator is the OS facility that tracks which processes hold files
// open and can shut them down. Session drives it; callers normally use
// Session rather than a Coordinator directly.
type Coordinator interface {
	// Start opens a new session.
	Start() (Handle, error)

	// Register adds absolute file paths to the session.
	Register(h Handle, paths []string) error

	// List copies the current lockers into buf. needed is the total count;
	// filled is how many entries of buf were written. When buf is too
	// small it returns ErrMoreData.
	List(h Handle, buf []LockingProcess) (needed, filled int, err error)

	// Shutdown asks every locker to exit and force-kills the ones that do
	// not.
	Shutdown(h Handle) error

	// End releases the session.
	End(h Handle) error
}
