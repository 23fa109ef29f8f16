package vos

import (
	"io"
	"net"
	"time"

	"github.com/sigil-lang/sigil/core/config"
	"github.com/sigil-lang/sigil/core/logger"
)

// TimeSource is the clock the sandbox runs on.
type TimeSource func() time.Time

// VNetwork is the sandbox's view of the machine identity.
type VNetwork interface {
	// Hostname returns the host name reported by the kernel.
	Hostname() string

	// Uname returns the system identification, uname(2) style.
	Uname() Utsname

	// LookupHost finds a virtual network entry by name or address,
	// nil if the host is unreachable from the sandbox.
	LookupHost(nameOrAddr string) *config.NetworkHost
}

// PTY describes the terminal attached to a session.
type PTY struct {
	Width  int
	Height int
	Term   string
	IsPTY  bool
}

// VProc represents the process-local state of a running command.
type VProc interface {
	// Returns the path to the executable that started the process.
	Executable() (string, error)

	// Getpid returns the process id of the caller.
	Getpid() int

	// Getuid returns the numeric user id of the caller.
	Getuid() int

	// Returns the arguments to the current process.
	Args() []string

	// Getwd returns a rooted path name corresponding to the current directory.
	Getwd() (dir string, err error)

	// Chdir changes the directory.
	Chdir(dir string) error
}

// VOS provides a virtual OS interface.
type VOS interface {
	VNetwork
	VEnv
	VIO
	VProc
	VFS

	// Now returns the current sandbox time.
	Now() time.Time

	// BootTime returns the time the sandbox booted.
	BootTime() time.Time

	// LoginTime returns the time the session was established.
	LoginTime() time.Time

	// SSHUser returns the username used when establishing the session.
	SSHUser() string

	// SSHRemoteAddr returns the client side of the connection.
	SSHRemoteAddr() net.Addr

	// SSHStdout is a direct connection to the session's output stream,
	// bypassing any process redirection.
	SSHStdout() io.Writer

	// SSHExit hangs up the session.
	SSHExit(code int) error

	// LogInvalidInvocation records arguments the command couldn't handle,
	// usually a gap in the sandbox worth fixing.
	LogInvalidInvocation(err error)

	// LogFetch records a transfer over the virtual network.
	LogFetch(fetch *logger.Fetch)

	// LogUnknownCommand records a command the sandbox couldn't resolve.
	LogUnknownCommand(cmd *logger.UnknownCommand)

	// LogRunRecipe records a catalogue recipe being played.
	LogRunRecipe(recipe *logger.RunRecipe)

	SetPTY(PTY)
	GetPTY() PTY

	// StartProcess prepares a child process. The returned VOS is the
	// child's view of the world; call Run on it to execute.
	StartProcess(name string, argv []string, attr *ProcAttr) (VOS, error)

	// Run executes the process and returns its exit code.
	Run() int
}
