package vostest

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sigil-lang/sigil/core/config"
	"github.com/sigil-lang/sigil/core/logger"
	"github.com/sigil-lang/sigil/core/vos"
)

type NopEventRecorder struct{}

func (*NopEventRecorder) Record(event logger.LogType) error {
	return nil
}

type FakeSSHSession struct {
}

func (f *FakeSSHSession) User() string {
	return "student"
}

func (f *FakeSSHSession) RemoteAddr() net.Addr {
	return &net.IPNet{IP: net.IPv4(192, 0, 2, 10), Mask: net.IPv4Mask(255, 255, 255, 255)}
}

func (f *FakeSSHSession) Exit(code int) error {
	return nil
}

func (f *FakeSSHSession) Write(b []byte) (int, error) {
	return len(b), nil
}

func SingleProcessResolver(process vos.ProcessFunc) vos.ProcessResolver {
	return func(path string) vos.ProcessFunc {
		return process
	}
}

// NewDeterministicOS creates a logged-in sandbox over the built-in workspace
// with a pinned clock so command output is byte-for-byte stable across runs.
func NewDeterministicOS(resolver vos.ProcessResolver) vos.VOS {
	timeSource := func() time.Time {
		// Go's reference timestmap with a different value in each position.
		return time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
	}

	cfg := config.Default()
	// Pin file timestamps to the same instant as the clock.
	cfg.Clock.Seed = "2006-01-02T03:04:05Z"

	baseFS, err := vos.NewBaseFS(cfg, nil)
	if err != nil {
		panic(fmt.Sprintf("couldn't build sandbox filesystem: %v", err))
	}

	sharedOS := vos.NewSharedOS(baseFS, resolver, cfg, timeSource)

	tenantOS := vos.NewTenantOS(sharedOS, &NopEventRecorder{}, &FakeSSHSession{})
	tenantOS.SetPTY(vos.PTY{})

	if user := cfg.GetUser("student"); user != nil {
		return tenantOS.LoginProc(user)
	}
	return tenantOS.InitProc()
}

// Cmd is similar to exec.Cmd.
type Cmd struct {
	// VOS the command will run on. Tests can seed files or environment
	// variables here before calling Run.
	VOS vos.VOS
	// Process function
	Process vos.ProcessFunc
	// Process arguments, the first argument should be the process name.
	Argv []string
	// If Dir is non-empty, the child changes into the directory before
	// creating the process.
	Dir string
	// If Env is non-empty, it gives the environment variables for the
	// new process in the form returned by Environ.
	// If it is nil, the result of Environ will be used.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	ExitStatus int
}

func Command(process vos.ProcessFunc, name string, arg ...string) *Cmd {
	return &Cmd{
		VOS:     NewDeterministicOS(SingleProcessResolver(process)),
		Process: process,
		Argv:    append([]string{name}, arg...),
	}
}

func (c *Cmd) CombinedOutput() ([]byte, error) {
	// stdout, stderr
	buf := &bytes.Buffer{}
	c.Stdout = buf
	c.Stderr = buf

	err := c.Run()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Output runs the command and returns its standard output alone.
func (c *Cmd) Output() ([]byte, error) {
	buf := &bytes.Buffer{}
	c.Stdout = buf
	c.Stderr = io.Discard

	err := c.Run()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run starts the comand and waits for it to complete.
func (c *Cmd) Run() error {
	runner, err := c.VOS.StartProcess(c.Argv[0], c.Argv, &vos.ProcAttr{
		Dir:   c.Dir,
		Env:   c.Env,
		Files: vos.NewVIOAdapter(c.Stdin, c.Stdout, c.Stderr),
	})
	if err != nil {
		return err
	}

	c.ExitStatus = runner.Run()
	return nil
}
