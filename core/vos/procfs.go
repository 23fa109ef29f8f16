package vos

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/afero"
)

type procFile struct {
	Name      string
	Generator func(shared *SharedOS) string
}

var procFiles = []procFile{
	{Name: "/cpuinfo", Generator: func(shared *SharedOS) string {
		return `processor	: 0
vendor_id	: GenuineIntel
cpu family	: 6
model		: 45
model name	: unknown
stepping	: unknown
cpu MHz		: 1234.588
cache size	: 512 KB
fpu		: yes
fpu_exception	: yes
cpuid level	: 13
wp		: yes
bogomips	: 2469.17
clflush size	: 64
cache_alignment	: 64
address sizes	: 46 bits physical, 48 bits virtual
`
	}},
	{Name: "/uptime", Generator: func(shared *SharedOS) string {
		uptime := shared.Now().Sub(shared.BootTime()).Seconds()
		// [seconds running] [seconds idle]
		return fmt.Sprintf("%0.2f 0.00\n", uptime)
	}},
	{Name: "/version", Generator: func(shared *SharedOS) string {
		uname := shared.Uname()
		return fmt.Sprintf("%s %s %s\n", uname.Sysname, uname.Release, uname.Version)
	}},
	{Name: "/sys/kernel/hostname", Generator: func(shared *SharedOS) string {
		return shared.Hostname() + "\n"
	}},
}

// resolveProcFile renders a fresh snapshot of /proc and opens name out of
// it. Contents are tiny so rebuilding per open keeps them current.
func resolveProcFile(name string, shared *SharedOS) (afero.File, error) {
	snapshot := afero.NewMemMapFs()
	now := shared.Now()
	for _, pf := range procFiles {
		if err := afero.WriteFile(snapshot, pf.Name, []byte(pf.Generator(shared)), 0444); err != nil {
			return nil, err
		}
		if err := snapshot.Chtimes(pf.Name, now, now); err != nil {
			return nil, err
		}
	}

	fd, err := snapshot.Open(name)
	if err != nil {
		return nil, fs.ErrNotExist
	}
	return fd, nil
}

func NewProcFS(sharedOS *SharedOS) *ProcFS {
	return &ProcFS{sharedOS: sharedOS}
}

// ProcFS fakes up enough of procfs for the usual curiosity: uptime,
// version, cpuinfo.
type ProcFS struct {
	sharedOS *SharedOS
	VirtualFS
}

var _ VFS = (*ProcFS)(nil)

func (pfs *ProcFS) OpenFile(name string, flag int, perm fs.FileMode) (afero.File, error) {
	return resolveProcFile(name, pfs.sharedOS)
}

func (pfs *ProcFS) Open(name string) (afero.File, error) {
	return resolveProcFile(name, pfs.sharedOS)
}

func (*ProcFS) Name() string {
	return "/proc"
}

func (pfs *ProcFS) Stat(name string) (fs.FileInfo, error) {
	fd, err := resolveProcFile(name, pfs.sharedOS)
	if err != nil {
		return nil, err
	}
	return fd.Stat()
}

// VirtualFS returns ErrNotExist for any write or modify operations.
type VirtualFS struct{}

func (*VirtualFS) Rename(oldname, newname string) error {
	return fs.ErrNotExist
}

func (*VirtualFS) RemoveAll(name string) error {
	return fs.ErrNotExist
}

func (*VirtualFS) Remove(name string) error {
	return fs.ErrNotExist
}

func (*VirtualFS) MkdirAll(_ string, _ fs.FileMode) error {
	return fs.ErrNotExist
}

func (*VirtualFS) Mkdir(_ string, _ fs.FileMode) error {
	return fs.ErrNotExist
}

func (*VirtualFS) Create(_ string) (afero.File, error) {
	return nil, fs.ErrNotExist
}

func (*VirtualFS) Chtimes(_ string, _, _ time.Time) error {
	return fs.ErrNotExist
}

func (*VirtualFS) Chown(_ string, _ int, _ int) error {
	return fs.ErrNotExist
}

func (*VirtualFS) Chmod(_ string, _ fs.FileMode) error {
	return fs.ErrNotExist
}
