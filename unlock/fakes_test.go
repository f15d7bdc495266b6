package unlock

import (
	"errors"
)

// fakeCoordinator records calls and serves a scripted locker list.
type fakeCoordinator struct {
	lockers []LockingProcess
	grow    []LockingProcess // appended after the sizing call

	startErr, registerErr, listErr, shutdownErr, endErr error

	started    int
	registered []string
	listCalls  int
	shutdowns  int
	ended      int
}

func (f *fakeCoordinator) Start() (Handle, error) {
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.started++
	return Handle(f.started), nil
}

func (f *fakeCoordinator) Register(h Handle, paths []string) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, paths...)
	return nil
}

func (f *fakeCoordinator) List(h Handle, buf []LockingProcess) (int, int, error) {
	f.listCalls++
	if f.listErr != nil {
		return 0, 0, f.listErr
	}
	if f.listCalls == 2 {
		f.lockers = append(f.lockers, f.grow...)
	}
	n := copy(buf, f.lockers)
	if n < len(f.lockers) {
		return len(f.lockers), n, ErrMoreData
	}
	return len(f.lockers), n, nil
}

func (f *fakeCoordinator) Shutdown(h Handle) error {
	f.shutdowns++
	return f.shutdownErr
}

func (f *fakeCoordinator) End(h Handle) error {
	f.ended++
	return f.endErr
}

// fakeKiller resolves names from a table and records kills.
type fakeKiller struct {
	names   map[int32]string
	gone    map[int32]bool
	killErr map[int32]error
	killed  []int32
}

func (k *fakeKiller) Name(pid int32) (string, error) {
	if k.gone[pid] {
		return "", ErrProcessGone
	}
	name, ok := k.names[pid]
	if !ok {
		return "", errors.New("access denied")
	}
	return name, nil
}

func (k *fakeKiller) Kill(pid int32) error {
	if err := k.killErr[pid]; err != nil {
		return err
	}
	k.killed = append(k.killed, pid)
	return nil
}

// shortBufferCoordinator behaves like Restart Manager: a buffer too small
// for every holder comes back unfilled. The holder count jumps to grown
// after the first List call.
type shortBufferCoordinator struct {
	count, grown int

	listCalls int
	shutdowns int
	ended     int
}

func (f *shortBufferCoordinator) Start() (Handle, error) {
	return 1, nil
}

func (f *shortBufferCoordinator) Register(Handle, []string) error {
	return nil
}

func (f *shortBufferCoordinator) List(h Handle, buf []LockingProcess) (int, int, error) {
	f.listCalls++
	if f.listCalls > 1 {
		f.count = f.grown
	}
	if len(buf) < f.count {
		return f.count, 0, ErrMoreData
	}
	for i := range f.count {
		buf[i] = LockingProcess{PID: int32(i + 1)}
	}
	return f.count, f.count, nil
}

func (f *shortBufferCoordinator) Shutdown(Handle) error {
	f.shutdowns++
	return nil
}

func (f *shortBufferCoordinator) End(Handle) error {
	f.ended++
	return nil
}
