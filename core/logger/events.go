package logger

// LogEntry is a single event on the log. Exactly one event field is set,
// named by Kind so the JSONL stream stays greppable.
type LogEntry struct {
	// Microseconds since the UNIX epoch.
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`
	Kind            string `json:"kind"`

	SessionStart      *SessionStart      `json:"session_start,omitempty"`
	SessionEnd        *SessionEnd        `json:"session_end,omitempty"`
	RunCommand        *RunCommand        `json:"run_command,omitempty"`
	RunRecipe         *RunRecipe         `json:"run_recipe,omitempty"`
	UnknownCommand    *UnknownCommand    `json:"unknown_command,omitempty"`
	InvalidInvocation *InvalidInvocation `json:"invalid_invocation,omitempty"`
	TerminalUpdate    *TerminalUpdate    `json:"terminal_update,omitempty"`
	OpenTTYLog        *OpenTTYLog        `json:"open_tty_log,omitempty"`
	Fetch             *Fetch             `json:"fetch,omitempty"`
	Panic             *Panic             `json:"panic,omitempty"`
}

// LogType is implemented by every event that can be recorded.
type LogType interface {
	eventKind() string
	attach(le *LogEntry)
}

// GetLogType returns the event stored on the entry, nil if the entry is
// empty or came from a newer version of the log format.
func (le *LogEntry) GetLogType() LogType {
	switch {
	case le.SessionStart != nil:
		return le.SessionStart
	case le.SessionEnd != nil:
		return le.SessionEnd
	case le.RunCommand != nil:
		return le.RunCommand
	case le.RunRecipe != nil:
		return le.RunRecipe
	case le.UnknownCommand != nil:
		return le.UnknownCommand
	case le.InvalidInvocation != nil:
		return le.InvalidInvocation
	case le.TerminalUpdate != nil:
		return le.TerminalUpdate
	case le.OpenTTYLog != nil:
		return le.OpenTTYLog
	case le.Fetch != nil:
		return le.Fetch
	case le.Panic != nil:
		return le.Panic
	}
	return nil
}

// LoginResult reports how a session start attempt ended.
type LoginResult string

const (
	LoginSuccess LoginResult = "SUCCESS"
	LoginFailure LoginResult = "FAILURE"
)

// SessionStart records a login on the classroom server.
type SessionStart struct {
	Username   string      `json:"username"`
	Password   string      `json:"password,omitempty"`
	PublicKey  []byte      `json:"public_key,omitempty"`
	RemoteAddr string      `json:"remote_addr,omitempty"`
	Result     LoginResult `json:"result"`
}

func (*SessionStart) eventKind() string     { return "session_start" }
func (e *SessionStart) attach(le *LogEntry) { le.SessionStart = e }

// SessionEnd records a session hanging up.
type SessionEnd struct {
	DurationMillis int64 `json:"duration_millis"`
}

func (*SessionEnd) eventKind() string     { return "session_end" }
func (e *SessionEnd) attach(le *LogEntry) { le.SessionEnd = e }

// RunCommand records a command executed in the sandbox.
type RunCommand struct {
	// Command holds the argv of the command, including the name.
	Command []string `json:"command"`
	// ResolvedCommandPath is the binary the name resolved to.
	ResolvedCommandPath string `json:"resolved_command_path,omitempty"`
}

func (*RunCommand) eventKind() string     { return "run_command" }
func (e *RunCommand) attach(le *LogEntry) { le.RunCommand = e }

// RunRecipe records a catalogue recipe being played.
type RunRecipe struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	CommandLine string `json:"command_line"`
}

func (*RunRecipe) eventKind() string     { return "run_recipe" }
func (e *RunRecipe) attach(le *LogEntry) { le.RunRecipe = e }

// UnknownCommandStatus describes why a command lookup failed.
type UnknownCommandStatus string

const (
	CommandNotFound      UnknownCommandStatus = "NOT_FOUND"
	CommandNotExecutable UnknownCommandStatus = "NOT_EXECUTABLE"
	CommandLookupError   UnknownCommandStatus = "LOOKUP_ERROR"
)

// UnknownCommand records a command the sandbox couldn't resolve. These are
// the strongest signal for what the userland is missing.
type UnknownCommand struct {
	Command      []string             `json:"command"`
	Status       UnknownCommandStatus `json:"status"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

func (*UnknownCommand) eventKind() string     { return "unknown_command" }
func (e *UnknownCommand) attach(le *LogEntry) { le.UnknownCommand = e }

// InvalidInvocation records a command that rejected its arguments.
type InvalidInvocation struct {
	Command []string `json:"command"`
	Error   string   `json:"error"`
}

func (*InvalidInvocation) eventKind() string     { return "invalid_invocation" }
func (e *InvalidInvocation) attach(le *LogEntry) { le.InvalidInvocation = e }

// TerminalUpdate records the connected terminal's properties.
type TerminalUpdate struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Term   string `json:"term,omitempty"`
	IsPTY  bool   `json:"is_pty"`
}

func (*TerminalUpdate) eventKind() string     { return "terminal_update" }
func (e *TerminalUpdate) attach(le *LogEntry) { le.TerminalUpdate = e }

// OpenTTYLog records the name of the terminal recording for the session.
type OpenTTYLog struct {
	Name string `json:"name"`
}

func (*OpenTTYLog) eventKind() string     { return "open_tty_log" }
func (e *OpenTTYLog) attach(le *LogEntry) { le.OpenTTYLog = e }

// Fetch records a transfer over the virtual network.
type Fetch struct {
	Source  string   `json:"source"`
	Dest    string   `json:"dest,omitempty"`
	Bytes   int64    `json:"bytes"`
	Command []string `json:"command,omitempty"`
}

func (*Fetch) eventKind() string     { return "fetch" }
func (e *Fetch) attach(le *LogEntry) { le.Fetch = e }

// Panic records a crash in a sandbox command so it can be fixed.
type Panic struct {
	Context    string `json:"context"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

func (*Panic) eventKind() string     { return "panic" }
func (e *Panic) attach(le *LogEntry) { le.Panic = e }
