package config

import (
	"io/fs"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	assert.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultCorpus(t *testing.T) {
	corpus := DefaultCorpusFS()

	wantFiles := []string{
		"etc/passwd",
		"etc/hostname",
		"home/student/users.csv",
		"home/student/inventory.json",
		"home/student/todo.txt",
		"home/student/numbers.txt",
		"var/log/access.log",
		"var/log/syslog",
		"var/www/index.html",
		"usr/share/dict/words",
	}
	for _, name := range wantFiles {
		contents, err := fs.ReadFile(corpus, name)
		assert.NoError(t, err, name)
		assert.NotEmpty(t, contents, name)
	}
}

func TestClockTimeSource(t *testing.T) {
	t.Run("empty seed is the real clock", func(t *testing.T) {
		now := Clock{}.TimeSource()()
		assert.WithinDuration(t, time.Now(), now, time.Minute)
	})

	t.Run("seeded clock starts at the seed", func(t *testing.T) {
		now := Clock{Seed: "2024-03-12T06:45:00Z"}.TimeSource()()
		want := time.Date(2024, 3, 12, 6, 45, 0, 0, time.UTC)
		assert.WithinDuration(t, want, now, time.Minute)
	})

	t.Run("seeded clock ticks", func(t *testing.T) {
		source := Clock{Seed: "2024-03-12T06:45:00Z"}.TimeSource()
		first := source()
		second := source()
		assert.False(t, second.Before(first))
	})
}

func TestLookupHost(t *testing.T) {
	cfg := defaultConfig()

	t.Run("by name", func(t *testing.T) {
		host := cfg.LookupHost("example.com")
		require.NotNil(t, host)
		assert.Equal(t, "93.184.216.34", host.Address)
	})

	t.Run("by address", func(t *testing.T) {
		host := cfg.LookupHost("127.0.0.1")
		require.NotNil(t, host)
		assert.Equal(t, "localhost", host.Name)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Nil(t, cfg.LookupHost("unreachable.test"))
	})
}

func TestGetPasswords(t *testing.T) {
	cfg := &Configuration{
		GlobalPasswords: []string{"letmein"},
		Users: []User{
			{Username: "student", Passwords: []string{"hunter2"}},
			{Username: "aide", Passwords: nil},
		},
	}

	assert.Equal(t, []string{"hunter2", "letmein"}, cfg.GetPasswords("student"))
	assert.Equal(t, []string{"letmein"}, cfg.GetPasswords("aide"))
	assert.Equal(t, []string{"letmein"}, cfg.GetPasswords("nobody"))
}

func TestGetUser(t *testing.T) {
	cfg := defaultConfig()

	student := cfg.GetUser("student")
	require.NotNil(t, student)
	assert.Equal(t, 1000, student.UID)
	assert.Equal(t, "/home/student", student.Home)

	assert.Nil(t, cfg.GetUser("root"))
}
