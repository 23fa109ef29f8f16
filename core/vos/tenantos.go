package vos

import (
	"io"
	"net"
	"time"

	"github.com/sigil-lang/sigil/core/config"
	"github.com/sigil-lang/sigil/core/logger"
	"github.com/spf13/afero"
)

// TenantOS is one session's private view of the shared OS. Writes land in
// a copy-on-write layer that disappears with the session.
type TenantOS struct {
	sharedOS *SharedOS
	// fs contains a tenant's view of the shared OS.
	fs VFS
	// eventRecorder logs events.
	eventRecorder EventRecorder
	// Connected terminal information.
	pty PTY
	// loginTime is the time the user logged in.
	loginTime time.Time
	// Username the user logged in as.
	user string
	// Remote address of the connected user.
	remoteAddr net.Addr

	sshStdout io.Writer

	sshExit func(int) error
}

type EventRecorder interface {
	Record(event logger.LogType) error
}

type SSHSession interface {
	User() string
	RemoteAddr() net.Addr
	Exit(code int) error
	Write([]byte) (int, error)
}

func NewTenantOS(sharedOS *SharedOS, eventRecorder EventRecorder, session SSHSession) *TenantOS {
	ufs := NewMemCopyOnWriteFs(sharedOS.ReadOnlyFs())
	mounts := NewMountFS(ufs)
	mounts.Mount("/proc", NewProcFS(sharedOS))

	return &TenantOS{
		sharedOS:      sharedOS,
		fs:            mounts,
		eventRecorder: eventRecorder,
		loginTime:     sharedOS.Now(),
		user:          session.User(),
		remoteAddr:    session.RemoteAddr(),
		sshExit:       session.Exit,
		sshStdout:     session,
	}
}

// Hostname implements VOS.Hostname.
func (t *TenantOS) Hostname() string {
	return t.sharedOS.Hostname()
}

// Uname implements VOS.Uname.
func (t *TenantOS) Uname() Utsname {
	return t.sharedOS.Uname()
}

// LookupHost implements VOS.LookupHost.
func (t *TenantOS) LookupHost(nameOrAddr string) *config.NetworkHost {
	return t.sharedOS.Config().LookupHost(nameOrAddr)
}

func (t *TenantOS) SetPTY(pty PTY) {
	t.eventRecorder.Record(&logger.TerminalUpdate{
		Width:  pty.Width,
		Height: pty.Height,
		Term:   pty.Term,
		IsPTY:  pty.IsPTY,
	})

	t.pty = pty
}

func (t *TenantOS) GetPTY() PTY {
	return t.pty
}

// InitProc returns the root of the process tree.
func (t *TenantOS) InitProc() *TenantProcOS {
	return &TenantProcOS{
		TenantOS:       t,
		VFS:            t.fs,
		VIO:            NewNullIO(),
		VEnv:           NewMapEnv(),
		ExecutablePath: "/sbin/init",
		ProcArgs:       []string{"/sbin/init"},
		PID:            0,
		UID:            0,
		Dir:            "/",
		Exec: func(_ VOS) int {
			return 0
		},
	}
}

// LoginProc returns the session's first real process, owned by the given
// user with a login environment.
func (t *TenantOS) LoginProc(user *config.User) *TenantProcOS {
	dir := user.Home
	if ok, err := afero.DirExists(t.fs, dir); err != nil || !ok {
		dir = "/"
	}

	env := NewMapEnv()
	env.Setenv("HOME", user.Home)
	env.Setenv("USER", user.Username)
	env.Setenv("LOGNAME", user.Username)
	env.Setenv("SHELL", user.Shell)
	env.Setenv("PATH", t.sharedOS.Config().OS.DefaultPath)
	env.Setenv("HOSTNAME", t.sharedOS.Hostname())
	env.Setenv("PWD", dir)

	out := &TenantProcOS{
		TenantOS:       t,
		VEnv:           env,
		VIO:            NewNullIO(),
		ExecutablePath: "/bin/login",
		ProcArgs:       []string{"/bin/login"},
		PID:            t.sharedOS.NextPID(),
		UID:            user.UID,
		Dir:            dir,
		Exec: func(_ VOS) int {
			return 0
		},
	}
	out.VFS = NewRelativeFs(t.fs, out.Getwd)

	return out
}

func (t *TenantOS) BootTime() time.Time {
	return t.sharedOS.BootTime()
}

func (t *TenantOS) LoginTime() time.Time {
	return t.loginTime
}

// SSHUser returns the username used when establishing the SSH connection.
func (t *TenantOS) SSHUser() string {
	return t.user
}

// SSHRemoteAddr returns the net.Addr of the client side of the connection.
func (t *TenantOS) SSHRemoteAddr() net.Addr {
	if t.remoteAddr == nil {
		return &net.IPNet{IP: net.IPv4(127, 0, 0, 1), Mask: net.IPv4Mask(255, 255, 255, 255)}
	}
	return t.remoteAddr
}

// SSHStdout is a direct connection to the SSH stdout stream.
// Useful for broadcasting messages.
func (t *TenantOS) SSHStdout() io.Writer {
	return t.sshStdout
}

// SSHExit hangs up the incoming SSH connection.
func (t *TenantOS) SSHExit(code int) error {
	return t.sshExit(code)
}

func (t *TenantOS) Now() time.Time {
	return t.sharedOS.Now()
}
