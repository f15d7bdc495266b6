//go:build windows

package unlock

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modrstrtmgr = windows.NewLazySystemDLL("rstrtmgr.dll")

	procRmStartSession      = modrstrtmgr.NewProc("RmStartSession")
	procRmRegisterResources = modrstrtmgr.NewProc("RmRegisterResources")
	procRmGetList           = modrstrtmgr.NewProc("RmGetList")
	procRmShutdown          = modrstrtmgr.NewProc("RmShutdown")
	procRmEndSession        = modrstrtmgr.NewProc("RmEndSession")
)

const (
	cchRmSessionKey = 32
	cchRmMaxAppName = 255
	cchRmMaxSvcName = 63
	rmForceShutdown = 0x1
	errorMoreData   = 234
)

type rmUniqueProcess struct {
	ProcessID        uint32
	ProcessStartTime windows.Filetime
}

// rmProcessInfo mirrors RM_PROCESS_INFO.
type rmProcessInfo struct {
	Process          rmUniqueProcess
	AppName          [cchRmMaxAppName + 1]uint16
	ServiceShortName [cchRmMaxSvcName + 1]uint16
	ApplicationType  uint32
	AppStatus        uint32
	TSSessionID      uint32
	Restartable      int32
}

// restartManager is the Coordinator backed by the Windows Restart Manager.
// Restart Manager does its own graceful-then-forced shutdown, so the grace
// period is unused here.
type restartManager struct{}

// NewCoordinator returns the platform Coordinator.
func NewCoordinator(grace time.Duration) Coordinator {
	return restartManager{}
}

func (restartManager) Start() (Handle, error) {
	if err := procRmStartSession.Find(); err != nil {
		return 0, fmt.Errorf("load rstrtmgr.dll: %w", err)
	}
	var h uint32
	var key [cchRmSessionKey + 1]uint16
	r, _, _ := procRmStartSession.Call(uintptr(unsafe.Pointer(&h)), 0, uintptr(unsafe.Pointer(&key[0])))
	if r != 0 {
		return 0, fmt.Errorf("RmStartSession: %w", windows.Errno(r))
	}
	return Handle(h), nil
}

func (restartManager) Register(h Handle, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	ptrs := make([]*uint16, 0, len(paths))
	for _, p := range paths {
		u, err := windows.UTF16PtrFromString(p)
		if err != nil {
			return fmt.Errorf("encode %q: %w", p, err)
		}
		ptrs = append(ptrs, u)
	}
	r, _, _ := procRmRegisterResources.Call(
		uintptr(h),
		uintptr(uint32(len(ptrs))),
		uintptr(unsafe.Pointer(&ptrs[0])),
		0, 0, 0, 0,
	)
	if r != 0 {
		return fmt.Errorf("RmRegisterResources: %w", windows.Errno(r))
	}
	return nil
}

func (restartManager) List(h Handle, buf []LockingProcess) (needed, filled int, err error) {
	var (
		nNeeded uint32
		nInfo   = uint32(len(buf))
		reasons uint32
		infos   []rmProcessInfo
		first   *rmProcessInfo
	)
	if len(buf) > 0 {
		infos = make([]rmProcessInfo, len(buf))
		first = &infos[0]
	}

	r, _, _ := procRmGetList.Call(
		uintptr(h),
		uintptr(unsafe.Pointer(&nNeeded)),
		uintptr(unsafe.Pointer(&nInfo)),
		uintptr(unsafe.Pointer(first)),
		uintptr(unsafe.Pointer(&reasons)),
	)
	switch r {
	case 0:
	case errorMoreData:
		// rgAffectedApps is not filled when the buffer is short.
		return int(nNeeded), 0, ErrMoreData
	default:
		return 0, 0, fmt.Errorf("RmGetList: %w", windows.Errno(r))
	}

	filled = min(int(nInfo), len(buf))
	for i := range filled {
		buf[i] = LockingProcess{
			PID:  int32(infos[i].Process.ProcessID),
			Name: windows.UTF16ToString(infos[i].AppName[:]),
		}
	}
	return int(nNeeded), filled, nil
}

func (restartManager) Shutdown(h Handle) error {
	r, _, _ := procRmShutdown.Call(uintptr(h), rmForceShutdown, 0)
	if r != 0 {
		return fmt.Errorf("RmShutdown: %w", windows.Errno(r))
	}
	return nil
}

func (restartManager) End(h Handle) error {
	r, _, _ := procRmEndSession.Call(uintptr(h))
	if r != 0 {
		return fmt.Errorf("RmEndSession: %w", windows.Errno(r))
	}
	return nil
}
