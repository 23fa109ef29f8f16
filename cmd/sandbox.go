package cmd

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/sigil-lang/sigil/commands"
	"github.com/sigil-lang/sigil/core/config"
	"github.com/sigil-lang/sigil/core/logger"
	"github.com/sigil-lang/sigil/core/vos"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

// hostSession adapts the local terminal to the session interface the
// tenant OS expects from SSH connections.
type hostSession struct {
	user string
	out  io.Writer
}

func (p *hostSession) User() string {
	return p.user
}

func (p *hostSession) RemoteAddr() net.Addr {
	return &net.IPNet{IP: net.IPv4(127, 0, 0, 1), Mask: net.IPv4Mask(255, 255, 255, 255)}
}

func (p *hostSession) Exit(code int) error {
	// The process ends when the shell's read loop does.
	return nil
}

func (p *hostSession) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

// hostVIO connects a sandbox process to the real stdio.
type hostVIO struct{}

func (c *hostVIO) Stdin() io.ReadCloser   { return os.Stdin }
func (c *hostVIO) Stdout() io.WriteCloser { return os.Stdout }
func (c *hostVIO) Stderr() io.WriteCloser { return os.Stderr }

var _ vos.VIO = (*hostVIO)(nil)

// hostPTY describes the local terminal so sandbox commands can make the
// same color and width decisions they would over SSH.
func hostPTY() vos.PTY {
	pty := vos.PTY{
		Width:  80,
		Height: 24,
		Term:   os.Getenv("TERM"),
		IsPTY:  false,
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pty.IsPTY = true
		if width, height, err := term.GetSize(fd); err == nil {
			pty.Width = width
			pty.Height = height
		}
	}
	return pty
}

// sandboxUsername picks the user local sessions run as.
func sandboxUsername(cfg *config.Configuration) string {
	if user := cfg.GetUser("student"); user != nil {
		return user.Username
	}
	if len(cfg.Users) > 0 {
		return cfg.Users[0].Username
	}
	return "root"
}

// runSandbox boots a one-tenant sandbox wired to the local stdio and runs
// a single process in it. Events still land in the workspace event log so
// local experiments show up in reports.
func runSandbox(cfg *config.Configuration, pty vos.PTY, showMOTD bool, path string, argv []string) (int, error) {
	eventLog, err := cfg.OpenEventLog()
	if err != nil {
		return 1, err
	}
	defer eventLog.Close()
	session := logger.NewJsonLinesLogRecorder(eventLog).NewSession()

	baseFS, err := vos.NewBaseFS(cfg, commands.BinNames())
	if err != nil {
		return 1, fmt.Errorf("building sandbox filesystem: %v", err)
	}

	sharedOS := vos.NewSharedOS(baseFS, commands.BuiltinProcessResolver, cfg, cfg.Clock.TimeSource())

	username := sandboxUsername(cfg)
	tenantOS := vos.NewTenantOS(sharedOS, session, &hostSession{user: username, out: os.Stdout})
	tenantOS.SetPTY(pty)

	proc := tenantOS.InitProc()
	if user := cfg.GetUser(username); user != nil {
		proc = tenantOS.LoginProc(user)
	}

	runner, err := proc.StartProcess(path, argv, &vos.ProcAttr{
		Env:   proc.Environ(),
		Files: &hostVIO{},
	})
	if err != nil {
		return 1, err
	}

	if showMOTD {
		if motd, err := afero.ReadFile(runner, "/etc/motd"); err == nil {
			fmt.Fprint(os.Stdout, string(motd))
		}
	}

	return runner.Run(), nil
}
