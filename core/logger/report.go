package logger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

func NewBugReport() *BugReport {
	return &BugReport{
		InvalidInvocations: NewPathCounter("command", "error"),
		UnknownCommands:    NewPathCounter("command", "status", "error"),
	}
}

// BugReport pulls events that are likely bugs or gaps in the sandbox.
type BugReport struct {
	LogEntries int

	InvalidInvocations *PathCounter `json:"invalid_invocations"`
	UnknownCommands    *PathCounter `json:"unknown_commands"`
	Panics             []*Panic     `json:"panics"`
}

func (r *BugReport) Update(le *LogEntry) {
	r.LogEntries++

	switch event := le.GetLogType().(type) {
	case *Panic:
		r.Panics = append(r.Panics, event)
	case *UnknownCommand:
		if len(event.Command) > 0 {
			r.UnknownCommands.Increment(event.Command[0], string(event.Status), event.ErrorMessage)
		}
	case *InvalidInvocation:
		if len(event.Command) > 0 {
			r.InvalidInvocations.Increment(event.Command[0], event.Error)
		}
	}
}

type InteractionReport struct {
	// Map of sessionID -> interactions
	interactions map[string]*InteractiveSession
}

type InteractiveSession struct {
	Login struct {
		Username   string `json:"username"`
		Password   string `json:"password"`
		PublicKey  []byte `json:"public_key,omitempty"`
		RemoteAddr string `json:"remote_addr,omitempty"`
	} `json:"login"`
	TTYLog       string `json:"tty_log"`
	LogEntries   int    `json:"log_entries"`
	TerminalName string `json:"terminal_name"`
	IsPty        bool   `json:"is_pty"`

	Commands []string `json:"commands"`
	Recipes  []string `json:"recipes"`
	Fetches  []string `json:"fetches"`
}

func (i *InteractiveSession) Update(le *LogEntry) {
	i.LogEntries++

	switch event := le.GetLogType().(type) {
	case *SessionStart:
		i.Login.Username = event.Username
		i.Login.Password = event.Password
		i.Login.PublicKey = event.PublicKey
		i.Login.RemoteAddr = event.RemoteAddr
	case *RunCommand:
		i.Commands = append(i.Commands, strings.Join(event.Command, " "))
	case *RunRecipe:
		i.Recipes = append(i.Recipes, event.Name)
	case *Fetch:
		i.Fetches = append(i.Fetches, fmt.Sprintf("%q -> %q", event.Source, event.Dest))
	case *UnknownCommand:
		i.Commands = append(i.Commands, strings.Join(event.Command, " "))
	case *TerminalUpdate:
		i.TerminalName = event.Term
		i.IsPty = event.IsPTY
	case *OpenTTYLog:
		i.TTYLog = event.Name
	}
}

func (i *InteractionReport) init() {
	if i.interactions == nil {
		i.interactions = make(map[string]*InteractiveSession)
	}
}

// MarshalJSON implements custom JSON marshaler.
func (i *InteractionReport) MarshalJSON() ([]byte, error) {
	i.init()

	return json.Marshal(i.interactions)
}

func (i *InteractionReport) Update(le *LogEntry) {
	i.init()

	sessionID := le.SessionID
	if sessionID == "" {
		return
	}
	report, ok := i.interactions[sessionID]
	if !ok {
		report = &InteractiveSession{}
		i.interactions[sessionID] = report
	}

	report.Update(le)
}

// Sessions returns the per-session interactions keyed by session ID.
func (i *InteractionReport) Sessions() map[string]*InteractiveSession {
	i.init()
	return i.interactions
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Login             LoginReport             `json:"login_report"`
	RunCommand        RunCommandReport        `json:"run_command_report"`
	RunRecipe         RunRecipeReport         `json:"run_recipe_report"`
	UnknownCommand    UnknownCommandReport    `json:"unknown_command_report"`
	InvalidInvocation InvalidInvocationReport `json:"invalid_invocation_report"`
	Fetch             FetchReport             `json:"fetch_report"`
	Panic             PanicReport             `json:"panic_report"`
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	switch event := le.GetLogType().(type) {
	case *SessionStart:
		r.Login.update(event)
	case *RunCommand:
		r.RunCommand.update(event)
	case *RunRecipe:
		r.RunRecipe.update(event)
	case *Panic:
		r.Panic.update(event)
	case *Fetch:
		r.Fetch.update(event)
	case *UnknownCommand:
		r.UnknownCommand.update(event)
	case *InvalidInvocation:
		r.InvalidInvocation.update(event)
	case *TerminalUpdate, *OpenTTYLog, *SessionEnd:
		// Ignore
	default:
		r.InvalidEntries.Increment(le.Kind)
	}
}

type LoginReport struct {
	// List of usernames and their counts.
	Usernames StrCounter `json:"usernames"`
	// List of login results and their counts.
	Results StrCounter `json:"results"`
	// List of remote addresses and their counts.
	RemoteAddrs StrCounter `json:"remote_addrs"`
}

func (r *LoginReport) update(la *SessionStart) {
	r.Usernames.Increment(la.Username)
	r.Results.Increment(string(la.Result))
	r.RemoteAddrs.Increment(la.RemoteAddr)
}

type RunCommandReport struct {
	// Name of the resolved command
	ResolvedCommandPaths StrCounter `json:"resolved_command_names"`
	// Name of the command
	CommandNames StrCounter `json:"command_names"`
}

func (r *RunCommandReport) update(rc *RunCommand) {
	r.ResolvedCommandPaths.Increment(rc.ResolvedCommandPath)
	if len(rc.Command) > 0 {
		r.CommandNames.Increment(rc.Command[0])
	}
}

type RunRecipeReport struct {
	RecipeNames StrCounter `json:"recipe_names"`
	Categories  StrCounter `json:"categories"`
}

func (r *RunRecipeReport) update(rr *RunRecipe) {
	r.RecipeNames.Increment(rr.Name)
	r.Categories.Increment(rr.Category)
}

type UnknownCommandReport struct {
	CommandNames    StrCounter `json:"command_names"`
	CommandStatuses StrCounter `json:"command_statuses"`
}

func (r *UnknownCommandReport) update(logEntry *UnknownCommand) {
	if len(logEntry.Command) > 0 {
		r.CommandNames.Increment(logEntry.Command[0])
	}

	r.CommandStatuses.Increment(string(logEntry.Status))
}

type InvalidInvocationReport struct {
	CommandNames StrCounter `json:"command_counts"`
}

func (r *InvalidInvocationReport) update(logEntry *InvalidInvocation) {
	if len(logEntry.Command) > 0 {
		r.CommandNames.Increment(logEntry.Command[0])
	}
}

type FetchReport struct {
	Count   int        `json:"count"`
	Sources StrCounter `json:"sources"`
	Bytes   int64      `json:"bytes"`
}

func (r *FetchReport) update(d *Fetch) {
	r.Count++
	r.Sources.Increment(d.Source)
	r.Bytes += d.Bytes
}

type PanicReport struct {
	Contexts []string `json:"contexts"`
}

func (r *PanicReport) update(p *Panic) {
	r.Contexts = append(r.Contexts, p.Context)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns the count for the given key.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of tuples seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implements custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
