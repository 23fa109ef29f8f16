// Package classroom runs the SSH front door of the sandbox. Each
// connection gets its own tenant OS, a session logger and a terminal
// recording under the workspace's session_logs directory.
package classroom

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"strings"

	"github.com/gliderlabs/ssh"
	"github.com/sigil-lang/sigil/commands"
	"github.com/sigil-lang/sigil/core/config"
	"github.com/sigil-lang/sigil/core/logger"
	"github.com/sigil-lang/sigil/core/ttylog"
	"github.com/sigil-lang/sigil/core/vos"
	"github.com/spf13/afero"
)

type sshContextKey struct {
	name string
}

var (
	// ContextAuthPublicKey holds the public key the client offered before
	// falling back to password auth, if it offered one.
	ContextAuthPublicKey = sshContextKey{"auth-public-key"}
	// ContextAuthPassword holds the password the client authenticated with.
	ContextAuthPassword = sshContextKey{"auth-password"}
)

// Classroom is the SSH server students connect to. One Classroom serves
// many concurrent sessions over a single shared OS image.
type Classroom struct {
	config    *config.Configuration
	sharedOS  *vos.SharedOS
	events    *logger.Logger
	sshServer *ssh.Server
}

// New builds a classroom from the workspace configuration. Interaction
// events are written to eventLog as JSON lines.
func New(cfg *config.Configuration, eventLog io.Writer) (*Classroom, error) {
	baseFS, err := vos.NewBaseFS(cfg, commands.BinNames())
	if err != nil {
		return nil, fmt.Errorf("building sandbox filesystem: %v", err)
	}

	classroom := &Classroom{
		config:   cfg,
		sharedOS: vos.NewSharedOS(baseFS, commands.BuiltinProcessResolver, cfg, cfg.Clock.TimeSource()),
		events:   logger.NewJsonLinesLogRecorder(eventLog),
	}

	classroom.sshServer = &ssh.Server{
		Addr: fmt.Sprintf(":%d", cfg.SSHPort),
		Handler: func(s ssh.Session) {
			if err := classroom.HandleConnection(s); err != nil {
				log.Printf("session from %s ended with error: %v", s.RemoteAddr(), err)
			}
		},
		PublicKeyHandler: func(ctx ssh.Context, key ssh.PublicKey) bool {
			ctx.SetValue(ContextAuthPublicKey, key.Marshal())
			return false
		},
		PasswordHandler: func(ctx ssh.Context, password string) bool {
			ctx.SetValue(ContextAuthPassword, password)
			if classroom.acceptPassword(ctx.User(), password) {
				return true
			}

			classroom.events.Sessionless().Record(&logger.SessionStart{
				Username:   ctx.User(),
				Password:   password,
				RemoteAddr: fmt.Sprintf("%s", ctx.RemoteAddr()),
				Result:     logger.LoginFailure,
			})
			return false
		},
	}

	if version := cfg.SSHBanner; version != "" {
		classroom.sshServer.Version = strings.TrimPrefix(version, "SSH-2.0-")
	}

	pem, err := cfg.PrivateKeyPem()
	switch {
	case err == nil:
		classroom.sshServer.SetOption(ssh.HostKeyPEM(pem))
	case errors.Is(err, fs.ErrNotExist):
		// No key in the workspace, the server generates a throwaway one.
		// Clients will warn that the host identity changed between runs.
	default:
		return nil, fmt.Errorf("reading host key: %v", err)
	}

	return classroom, nil
}

// acceptPassword implements the login policy. Only configured users may
// log in; with AllowAnyPassword set their password is not checked at all,
// which keeps drop-in classes from stalling on credentials.
func (c *Classroom) acceptPassword(username, password string) bool {
	if c.config.GetUser(username) == nil {
		return false
	}

	if c.config.AllowAnyPassword {
		return true
	}

	ok := false
	for _, candidate := range c.config.GetPasswords(username) {
		if subtle.ConstantTimeCompare([]byte(password), []byte(candidate)) == 1 {
			ok = true
		}
	}
	return ok
}

// HandleConnection runs a single SSH session to completion.
func (c *Classroom) HandleConnection(s ssh.Session) error {
	session := c.events.NewSession()
	loginTime := c.sharedOS.Now()

	publicKey, _ := s.Context().Value(ContextAuthPublicKey).([]byte)
	password, _ := s.Context().Value(ContextAuthPassword).(string)
	session.Record(&logger.SessionStart{
		Username:   s.User(),
		Password:   password,
		PublicKey:  publicKey,
		RemoteAddr: fmt.Sprintf("%s", s.RemoteAddr()),
		Result:     logger.LoginSuccess,
	})

	user := c.config.GetUser(s.User())
	if user == nil {
		// acceptPassword only admits configured users, so this is a
		// server bug rather than a student typo.
		fmt.Fprintf(s, "login: unknown user %s\r\n", s.User())
		s.Exit(1)
		return fmt.Errorf("authenticated user %q has no configuration", s.User())
	}

	ptyInfo, winch, isPTY := s.Pty()

	// Record the terminal so sessions can be replayed with `sigil sessions play`.
	castName := fmt.Sprintf("%s-%s.%s",
		loginTime.UTC().Format("20060102T150405Z"), session.SessionID(), ttylog.FileExt)
	session.Record(&logger.OpenTTYLog{Name: castName})

	castFd, err := c.config.CreateSessionLog(castName)
	if err != nil {
		s.Exit(1)
		return err
	}
	defer castFd.Close()

	sink := ttylog.NewAsciicastLogSink(castFd, ttylog.Header{
		Width:     ptyInfo.Window.Width,
		Height:    ptyInfo.Window.Height,
		Timestamp: loginTime.Unix(),
		Title:     fmt.Sprintf("%s@%s", s.User(), c.sharedOS.Hostname()),
		Env:       castEnv(ptyInfo.Term, user.Shell),
	})
	vio := ttylog.NewRecorder(vos.NewVIOAdapter(s, s, s), c.sharedOS.Now, sink)

	tenantOS := vos.NewTenantOS(c.sharedOS, session, s)
	tenantOS.SetPTY(vos.PTY{
		Width:  ptyInfo.Window.Width,
		Height: ptyInfo.Window.Height,
		Term:   ptyInfo.Term,
		IsPTY:  isPTY,
	})

	// Window size changes arrive for the lifetime of the session. The
	// channel is nil when no PTY was requested.
	if winch != nil {
		go func() {
			for window := range winch {
				tenantOS.SetPTY(vos.PTY{
					Width:  window.Width,
					Height: window.Height,
					Term:   ptyInfo.Term,
					IsPTY:  isPTY,
				})
			}
		}()
	}

	loginProc := tenantOS.LoginProc(user)

	shell := user.Shell
	argv := []string{shell}
	if raw := s.RawCommand(); raw != "" {
		// ssh host 'cmd' runs the command instead of an interactive shell.
		argv = append(argv, "-c", raw)
	}

	shellOS, err := loginProc.StartProcess(shell, argv, &vos.ProcAttr{
		Env:   append(loginProc.Environ(), s.Environ()...),
		Files: vio,
	})
	if err != nil {
		s.Exit(1)
		return err
	}

	if isPTY && s.RawCommand() == "" {
		printMOTD(shellOS)
	}

	exitCode := shellOS.Run()

	session.Record(&logger.SessionEnd{
		DurationMillis: c.sharedOS.Now().Sub(loginTime).Milliseconds(),
	})
	return s.Exit(exitCode)
}

// castEnv builds the environment block of the asciicast header, dropping
// empty values so headerless test sessions stay tidy.
func castEnv(term, shell string) map[string]string {
	env := make(map[string]string)
	if term != "" {
		env["TERM"] = term
	}
	if shell != "" {
		env["SHELL"] = shell
	}
	if len(env) == 0 {
		return nil
	}
	return env
}

// printMOTD shows /etc/motd the way login(1) does. SSH terminals expect
// CRLF line endings, the sandbox stores plain newlines.
func printMOTD(virtOS vos.VOS) {
	motd, err := afero.ReadFile(virtOS, "/etc/motd")
	if err != nil {
		return
	}
	fmt.Fprint(virtOS.Stdout(), strings.ReplaceAll(string(motd), "\n", "\r\n"))
}

// ListenAndServe starts the server on the configured port.
func (c *Classroom) ListenAndServe() error {
	log.Printf("Starting SSH server on %s", c.sshServer.Addr)
	return c.sshServer.ListenAndServe()
}

// Serve accepts connections from an existing listener.
func (c *Classroom) Serve(ln net.Listener) error {
	return c.sshServer.Serve(ln)
}

// Shutdown stops the server and waits for open sessions to finish.
func (c *Classroom) Shutdown(ctx context.Context) error {
	return c.sshServer.Shutdown(ctx)
}
