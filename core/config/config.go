package config

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte

	//go:embed default/corpus
	defaultCorpus embed.FS
)

const (
	ConfigurationName = "config.yaml"
	CorpusDirName     = "corpus"
	CorpusTarName     = "corpus.tar.gz"
	LogsDirName       = "session_logs"
	PrivateKeyName    = "host_key"
	EventLogName      = "events.log"
	AppLogName        = "app.log"

	// corpusPrefix is the embed path holding the default corpus tree.
	corpusPrefix = "default/corpus"
)

type Configuration struct {
	configFs afero.Fs

	Motd             string `json:"motd"`
	SSHPort          int    `json:"ssh_port" validate:"gte=0,lte=65535"`
	SSHBanner        string `json:"ssh_banner"`
	AllowAnyPassword bool   `json:"allow_any_password"`

	GlobalPasswords []string `json:"global_passwords"`

	OS OS `json:"os"`

	Users []User `json:"users" validate:"unique=Username"`

	Uname Uname `json:"uname"`

	Clock Clock `json:"clock"`

	Network []NetworkHost `json:"network" validate:"unique=Name,dive"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

type User struct {
	Username  string   `json:"username" validate:"required"`
	UID       int      `json:"uid" validate:"gte=0"`
	GID       int      `json:"gid" validate:"gte=0"`
	Home      string   `json:"home" validate:"required"`
	Shell     string   `json:"shell" validate:"required"`
	Passwords []string `json:"passwords" validate:"unique"`
}

type OS struct {
	DefaultShell string `json:"default_shell" validate:"required"`
	DefaultPath  string `json:"default_path" validate:"required"`
}

type Uname struct {
	KernelName       string `json:"kernel_name" validate:"required"`               // Kernel name e.g. "Linux".
	Nodename         string `json:"nodename" validate:"required,hostname_rfc1123"` // Hostname of the machine on one of its networks.
	KernelRelease    string `json:"kernel_release" validate:"required"`            // OS release e.g. "5.15.0-89-generic"
	KernelVersion    string `json:"kernel_version" validate:"required"`            // OS version e.g. "#99-Ubuntu SMP Thu Nov 2 10:21:23 UTC 2023"
	HardwarePlatform string `json:"hardware_platform" validate:"required"`         // Machine name e.g. "x86_64"
	Domainname       string `json:"domainname" validate:""`                        // NIS or YP domain name.
}

// Clock pins the sandbox clock so sessions replay identically.
type Clock struct {
	// Seed is an RFC 3339 instant the sandbox boots at. Empty means the
	// host's real clock.
	Seed string `json:"seed" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// TimeSource returns the clock the sandbox runs on. A seeded clock still
// ticks, it just starts at the seed instead of the present.
func (c Clock) TimeSource() func() time.Time {
	if c.Seed == "" {
		return time.Now
	}

	seed, err := time.Parse(time.RFC3339, c.Seed)
	if err != nil {
		// Validate() rejects unparsable seeds before this runs.
		return time.Now
	}

	offset := time.Until(seed)
	return func() time.Time {
		return time.Now().Add(offset).UTC()
	}
}

// NetworkHost is an entry in the sandbox's virtual network.
type NetworkHost struct {
	Name          string `json:"name" validate:"required,hostname_rfc1123"`
	Address       string `json:"address" validate:"required,ip"`
	LatencyMillis int    `json:"latency_millis" validate:"gte=0"`

	// Paths maps URL paths to sandbox files served for fetch requests.
	Paths map[string]string `json:"paths,omitempty"`
}

// LookupHost finds a virtual network entry by name or address, nil if the
// host is unreachable.
func (c *Configuration) LookupHost(nameOrAddr string) *NetworkHost {
	for i, h := range c.Network {
		if h.Name == nameOrAddr || h.Address == nameOrAddr {
			return &c.Network[i]
		}
	}
	return nil
}

// GetUser returns the configured user with the given name, nil if unknown.
func (c *Configuration) GetUser(username string) *User {
	for i, u := range c.Users {
		if u.Username == username {
			return &c.Users[i]
		}
	}
	return nil
}

// GetPasswords returns allowable passwords for the given username.
func (c *Configuration) GetPasswords(username string) []string {
	var out []string
	for _, v := range c.Users {
		if v.Username == username {
			out = append(out, v.Passwords...)
		}
	}

	out = append(out, c.GlobalPasswords...)
	return out
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// CreateSessionLog creates a new terminal recording under session_logs/.
func (c *Configuration) CreateSessionLog(name string) (afero.File, error) {
	toCreate := filepath.Join(LogsDirName, name)
	return c.fs().Create(toCreate)
}

// OpenSessionLog opens an existing terminal recording for replay.
func (c *Configuration) OpenSessionLog(name string) (afero.File, error) {
	return c.fs().Open(filepath.Join(LogsDirName, name))
}

// ListSessionLogs returns the names of recordings under session_logs/.
func (c *Configuration) ListSessionLogs() ([]string, error) {
	infos, err := afero.ReadDir(c.fs(), LogsDirName)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, info := range infos {
		if !info.IsDir() {
			out = append(out, info.Name())
		}
	}
	return out, nil
}

// PrivateKeyPem returns the bytes of the SSH host key.
func (c *Configuration) PrivateKeyPem() ([]byte, error) {
	return afero.ReadFile(c.fs(), PrivateKeyName)
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_RDONLY, 0600)
}

// OpenEventLog opens the JSONL event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.fs().OpenFile(EventLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(EventLogName, os.O_RDONLY, 0600)
}

// OpenCorpusTarGz opens the optional corpus override tarball. Most
// workspaces won't have one; callers should treat fs.ErrNotExist as "use
// the corpus directory".
func (c *Configuration) OpenCorpusTarGz() (afero.File, error) {
	return c.fs().Open(CorpusTarName)
}

// CorpusFS returns the teaching corpus as a filesystem rooted at the
// sandbox's /. The workspace corpus/ directory wins over the embedded
// default so workspaces can extend or replace files.
func (c *Configuration) CorpusFS() fs.FS {
	if c.configFs != nil {
		if ok, err := afero.DirExists(c.configFs, CorpusDirName); err == nil && ok {
			return afero.NewIOFS(afero.NewBasePathFs(c.configFs, CorpusDirName))
		}
	}

	return DefaultCorpusFS()
}

// DefaultCorpusFS returns the corpus compiled into the binary.
func DefaultCorpusFS() fs.FS {
	sub, err := fs.Sub(defaultCorpus, corpusPrefix)
	if err != nil {
		panic(err)
	}
	return sub
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built-in configuration backed by an in-memory
// workspace. It's suitable for one-shot commands that run without an
// initialized workspace.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewMemMapFs()
	out.configFs.MkdirAll(LogsDirName, 0700)
	return out
}
