package classroom

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sigil-lang/sigil/core/config"
	"github.com/sigil-lang/sigil/core/logger"
	"github.com/sigil-lang/sigil/core/ttylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

// syncBuffer collects the event log written by session goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Entries(t *testing.T) []*logger.LogEntry {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*logger.LogEntry
	err := logger.ReadJSONLinesLog(bytes.NewReader(b.buf.Bytes()), func(le *logger.LogEntry) {
		out = append(out, le)
	})
	require.NoError(t, err)
	return out
}

func (b *syncBuffer) Kinds(t *testing.T) []string {
	t.Helper()

	var out []string
	for _, le := range b.Entries(t) {
		out = append(out, le.Kind)
	}
	return out
}

func startClassroom(t *testing.T, cfg *config.Configuration) (addr string, events *syncBuffer) {
	t.Helper()

	events = &syncBuffer{}
	classroom, err := New(cfg, events)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go classroom.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		classroom.Shutdown(ctx)
	})

	return ln.Addr().String(), events
}

func clientConfig(user, password string) *gossh.ClientConfig {
	return &gossh.ClientConfig{
		User:            user,
		Auth:            []gossh.AuthMethod{gossh.Password(password)},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}
}

func sshOutput(t *testing.T, addr, user, password, command string) string {
	t.Helper()

	client, err := gossh.Dial("tcp", addr, clientConfig(user, password))
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	out, err := session.Output(command)
	require.NoError(t, err)
	return string(out)
}

func TestClassroomExec(t *testing.T) {
	cfg := config.Default()
	addr, events := startClassroom(t, cfg)

	out := sshOutput(t, addr, "student", "anything", "echo hello classroom")
	assert.Equal(t, "hello classroom\n", out)

	entries := events.Entries(t)
	require.NotEmpty(t, entries)

	start := entries[0]
	assert.Equal(t, "session_start", start.Kind)
	require.NotNil(t, start.SessionStart)
	assert.Equal(t, "student", start.SessionStart.Username)
	assert.Equal(t, "anything", start.SessionStart.Password)
	assert.Equal(t, logger.LoginSuccess, start.SessionStart.Result)
	assert.NotEmpty(t, start.SessionID)

	kinds := events.Kinds(t)
	assert.Contains(t, kinds, "open_tty_log")
	assert.Contains(t, kinds, "terminal_update")
	assert.Contains(t, kinds, "run_command")
	assert.Equal(t, "session_end", kinds[len(kinds)-1])

	// Every event belongs to the same session.
	for _, le := range entries {
		assert.Equal(t, start.SessionID, le.SessionID, "event %s", le.Kind)
	}
}

func TestClassroomRecordsAsciicast(t *testing.T) {
	cfg := config.Default()
	addr, events := startClassroom(t, cfg)

	sshOutput(t, addr, "student", "pw", "echo recorded words")

	names, err := cfg.ListSessionLogs()
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.True(t, strings.HasSuffix(names[0], "."+ttylog.FileExt), "got name %q", names[0])

	// The recording is discoverable from the event log.
	var opened *logger.OpenTTYLog
	for _, le := range events.Entries(t) {
		if le.OpenTTYLog != nil {
			opened = le.OpenTTYLog
		}
	}
	require.NotNil(t, opened)
	assert.Equal(t, names[0], opened.Name)

	fd, err := cfg.OpenSessionLog(names[0])
	require.NoError(t, err)
	defer fd.Close()

	source := ttylog.NewAsciicastLogSource(fd)
	header, err := source.Header()
	require.NoError(t, err)
	assert.Equal(t, 2, header.Version)
	assert.Equal(t, "student@classroom", header.Title)

	var replayed bytes.Buffer
	require.NoError(t, ttylog.Replay(source, ttylog.NewClientOutput(&replayed)))
	assert.Contains(t, replayed.String(), "recorded words")
}

func TestClassroomRunsRecipes(t *testing.T) {
	cfg := config.Default()
	addr, events := startClassroom(t, cfg)

	out := sshOutput(t, addr, "student", "pw", "recipes run count-lines")
	assert.Equal(t, "9 todo.txt\n", out)

	var recipe *logger.RunRecipe
	for _, le := range events.Entries(t) {
		if le.RunRecipe != nil {
			recipe = le.RunRecipe
		}
	}
	require.NotNil(t, recipe)
	assert.Equal(t, "count-lines", recipe.Name)
	assert.Equal(t, "text", recipe.Category)
}

func TestClassroomScripts(t *testing.T) {
	cfg := config.Default()
	addr, _ := startClassroom(t, cfg)

	cases := map[string]struct {
		command string
		want    string
	}{
		"interpreter": {
			command: `sigil -e 'print "42" + 8, "\n"'`,
			want:    "50\n",
		},
		"pipeline": {
			command: "head -n 1 todo.txt | wc -l",
			want:    "1\n",
		},
		"pwd is home": {
			command: "pwd",
			want:    "/home/student\n",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, sshOutput(t, addr, "student", "pw", tc.command))
		})
	}
}

func TestClassroomAuth(t *testing.T) {
	cases := map[string]struct {
		mutate   func(cfg *config.Configuration)
		user     string
		password string
		wantOK   bool
	}{
		"any password accepted by default": {
			mutate:   func(cfg *config.Configuration) {},
			user:     "student",
			password: "zanzibar",
			wantOK:   true,
		},
		"unknown user rejected": {
			mutate:   func(cfg *config.Configuration) {},
			user:     "mallory",
			password: "sigil",
			wantOK:   false,
		},
		"global password accepted": {
			mutate: func(cfg *config.Configuration) {
				cfg.AllowAnyPassword = false
			},
			user:     "student",
			password: "sigil",
			wantOK:   true,
		},
		"wrong password rejected": {
			mutate: func(cfg *config.Configuration) {
				cfg.AllowAnyPassword = false
			},
			user:     "student",
			password: "letmein",
			wantOK:   false,
		},
		"per user password accepted": {
			mutate: func(cfg *config.Configuration) {
				cfg.AllowAnyPassword = false
				cfg.Users[0].Passwords = []string{"hunter2"}
			},
			user:     "student",
			password: "hunter2",
			wantOK:   true,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			addr, events := startClassroom(t, cfg)

			client, err := gossh.Dial("tcp", addr, clientConfig(tc.user, tc.password))
			if tc.wantOK {
				require.NoError(t, err)
				client.Close()
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), "unable to authenticate")

			entries := events.Entries(t)
			require.NotEmpty(t, entries)
			last := entries[len(entries)-1]
			require.NotNil(t, last.SessionStart)
			assert.Equal(t, tc.user, last.SessionStart.Username)
			assert.Equal(t, tc.password, last.SessionStart.Password)
			assert.Equal(t, logger.LoginFailure, last.SessionStart.Result)
		})
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestClassroomUsesConfiguredHostKey(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Initialize(dir, discardLogger())
	require.NoError(t, err)

	addr, _ := startClassroom(t, cfg)

	var sawKey gossh.PublicKey
	clientCfg := clientConfig("student", "pw")
	clientCfg.HostKeyCallback = func(hostname string, remote net.Addr, key gossh.PublicKey) error {
		sawKey = key
		return nil
	}

	client, err := gossh.Dial("tcp", addr, clientCfg)
	require.NoError(t, err)
	client.Close()

	require.NotNil(t, sawKey)

	pem, err := cfg.PrivateKeyPem()
	require.NoError(t, err)
	signer, err := gossh.ParsePrivateKey(pem)
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey().Marshal(), sawKey.Marshal())
}

func TestAcceptPassword(t *testing.T) {
	cfg := config.Default()
	cfg.AllowAnyPassword = false
	cfg.GlobalPasswords = []string{"globalpw"}
	cfg.Users[0].Passwords = []string{"userpw"}

	classroom, err := New(cfg, io.Discard)
	require.NoError(t, err)

	cases := []struct {
		user     string
		password string
		want     bool
	}{
		{"student", "userpw", true},
		{"student", "globalpw", true},
		{"student", "", false},
		{"student", "USERPW", false},
		{"nobody", "globalpw", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, classroom.acceptPassword(tc.user, tc.password),
			"user=%s password=%s", tc.user, tc.password)
	}
}
