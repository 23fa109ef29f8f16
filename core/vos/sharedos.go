package vos

import (
	"sync/atomic"
	"time"

	"github.com/sigil-lang/sigil/core/config"
	"github.com/spf13/afero"
)

// ProcessFunc is a "process" that can be run.
type ProcessFunc func(VOS) int

// ProcessResolver looks up a builtin process by path, it returns nil if
// no process was found.
type ProcessResolver func(path string) ProcessFunc

func NewSharedOS(baseFS VFS, procResolver ProcessResolver, config *config.Configuration, timeSource TimeSource) *SharedOS {
	return &SharedOS{
		baseFS:          baseFS,
		utsname:         NewUtsname(config),
		nextPID:         0,
		bootTime:        timeSource(),
		processResolver: procResolver,
		config:          config,
		timeSource:      timeSource,
	}
}

// SharedOS is the shared base OS every session gets overlaid on.
//
// All public methods on this type are safe to call from concurrent
// sessions and produce immutable objects.
type SharedOS struct {
	// baseFS holds the filesystem that is shared between ALL sessions.
	baseFS VFS
	// utsname holds the displayed OS info including hostname.
	utsname Utsname
	// nextPID contains the next PID of the system.
	nextPID int32
	// The time the system booted.
	bootTime time.Time
	// The resolver for builtin processes.
	processResolver ProcessResolver
	// The user supplied configuration.
	config *config.Configuration
	// The clock the sandbox runs on.
	timeSource TimeSource
}

func (s *SharedOS) Hostname() string {
	return s.utsname.Nodename
}

func (s *SharedOS) Uname() Utsname {
	return s.utsname
}

// ReadOnlyFs returns a read only version of the base filesystem that multiple
// tenants can read from.
func (s *SharedOS) ReadOnlyFs() VFS {
	return afero.NewReadOnlyFs(s.baseFS)
}

// NextPID gets a monotonically increasing PID.
func (s *SharedOS) NextPID() int {
	return int(atomic.AddInt32(&s.nextPID, 1))
}

func (s *SharedOS) SetPID(pid int32) {
	atomic.StoreInt32(&s.nextPID, pid)
}

func (s *SharedOS) SetBootTime(bootTime time.Time) {
	s.bootTime = bootTime
}

func (s *SharedOS) BootTime() time.Time {
	return s.bootTime
}

func (s *SharedOS) Now() time.Time {
	return s.timeSource()
}

// Config returns the user supplied configuration.
func (s *SharedOS) Config() *config.Configuration {
	return s.config
}

// GetProcess resolves a builtin process by its absolute path.
func (s *SharedOS) GetProcess(path string) ProcessFunc {
	if s.processResolver == nil {
		return nil
	}
	return s.processResolver(path)
}
