package ttylog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sigil-lang/sigil/core/vos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsciicastRoundTrip(t *testing.T) {
	events := []*Event{
		{Delta: 0, Kind: Output, Data: []byte("classroom login: ")},
		{Delta: 500 * time.Millisecond, Kind: Input, Data: []byte("student\r")},
		{Delta: 750 * time.Millisecond, Kind: Output, Data: []byte("\x1b[32mwelcome\x1b[0m\r\n")},
		{Delta: 2 * time.Second, Kind: Output, Data: []byte("$ ")},
	}

	var buf bytes.Buffer
	sink := NewAsciicastLogSink(&buf, Header{Width: 80, Height: 24})
	for _, event := range events {
		require.NoError(t, sink(event))
	}

	source := NewAsciicastLogSource(&buf)
	var got []*Event
	require.NoError(t, Replay(source, func(event *Event) error {
		got = append(got, event)
		return nil
	}))

	assert.Equal(t, events, got)
}

func TestAsciicastHeader(t *testing.T) {
	t.Run("explicit dimensions", func(t *testing.T) {
		var buf bytes.Buffer
		sink := NewAsciicastLogSink(&buf, Header{
			Width:     120,
			Height:    40,
			Timestamp: 1136171045,
			Title:     "session 42",
			Env:       map[string]string{"TERM": "xterm"},
		})
		require.NoError(t, sink(&Event{Kind: Output, Data: []byte("hi")}))

		header, err := NewAsciicastLogSource(&buf).Header()
		require.NoError(t, err)
		assert.Equal(t, 2, header.Version)
		assert.Equal(t, 120, header.Width)
		assert.Equal(t, 40, header.Height)
		assert.Equal(t, int64(1136171045), header.Timestamp)
		assert.Equal(t, "session 42", header.Title)
		assert.Equal(t, "xterm", header.Env["TERM"])
	})

	t.Run("defaults for zero dimensions", func(t *testing.T) {
		var buf bytes.Buffer
		sink := NewAsciicastLogSink(&buf, Header{})
		require.NoError(t, sink(&Event{Kind: Output, Data: []byte("hi")}))

		header, err := NewAsciicastLogSource(&buf).Header()
		require.NoError(t, err)
		assert.Equal(t, 80, header.Width)
		assert.Equal(t, 24, header.Height)
	})

	t.Run("no events no file", func(t *testing.T) {
		var buf bytes.Buffer
		NewAsciicastLogSink(&buf, Header{})
		assert.Zero(t, buf.Len())
	})

	t.Run("rejects other versions", func(t *testing.T) {
		in := strings.NewReader(`{"version": 1, "width": 80, "height": 24}` + "\n")
		_, err := NewAsciicastLogSource(in).Header()
		assert.ErrorContains(t, err, "unsupported asciicast version 1")
	})
}

func TestAsciicastSourceSkipsMarkers(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		`{"version": 2, "width": 80, "height": 24}`,
		`[0.5, "m", "chapter one"]`,
		`[1.0, "o", "visible"]`,
		``,
	}, "\n"))

	source := NewAsciicastLogSource(in)
	event, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, Output, event.Kind)
	assert.Equal(t, []byte("visible"), event.Data)
}

func TestRecorder(t *testing.T) {
	now := time.Date(2024, 3, 12, 6, 45, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	var stdout, stderr bytes.Buffer
	inner := vos.NewVIOAdapter(strings.NewReader("ls\r"), &stdout, &stderr)

	var got []*Event
	recorder := NewRecorder(inner, clock, func(event *Event) error {
		copied := *event
		copied.Data = append([]byte(nil), event.Data...)
		got = append(got, &copied)
		return nil
	})

	now = now.Add(250 * time.Millisecond)
	_, err := recorder.Stdout().Write([]byte("$ "))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := recorder.Stdin().Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ls\r", string(buf[:n]))

	now = now.Add(250 * time.Millisecond)
	_, err = recorder.Stderr().Write([]byte("oops\r\n"))
	require.NoError(t, err)

	// The wrapped streams still work.
	assert.Equal(t, "$ ", stdout.String())
	assert.Equal(t, "oops\r\n", stderr.String())

	require.Len(t, got, 3)
	assert.Equal(t, &Event{Delta: 250 * time.Millisecond, Kind: Output, Data: []byte("$ ")}, got[0])
	assert.Equal(t, &Event{Delta: 250 * time.Millisecond, Kind: Input, Data: []byte("ls\r")}, got[1])
	assert.Equal(t, &Event{Delta: 500 * time.Millisecond, Kind: Output, Data: []byte("oops\r\n")}, got[2])
}

func TestNewClientOutput(t *testing.T) {
	var out bytes.Buffer
	sink := NewClientOutput(&out)

	require.NoError(t, sink(&Event{Kind: Output, Data: []byte("shown ")}))
	require.NoError(t, sink(&Event{Kind: Input, Data: []byte("hidden")}))
	require.NoError(t, sink(&Event{Kind: Output, Data: []byte("also shown")}))

	assert.Equal(t, "shown also shown", out.String())
}

func TestNewCRLFAdapter(t *testing.T) {
	var got []*Event
	sink := NewCRLFAdapter(func(event *Event) error {
		got = append(got, event)
		return nil
	})

	require.NoError(t, sink(&Event{Kind: Output, Data: []byte("a\nb\r\nc")}))
	require.NoError(t, sink(&Event{Kind: Input, Data: []byte("keep\n")}))

	assert.Equal(t, []byte("a\r\nb\r\nc"), got[0].Data)
	assert.Equal(t, []byte("keep\n"), got[1].Data)
}

func TestNewIdleClampAdapter(t *testing.T) {
	t.Run("clamps long gaps", func(t *testing.T) {
		var got []*Event
		sink := NewIdleClampAdapter(2*time.Second, func(event *Event) error {
			got = append(got, event)
			return nil
		})

		require.NoError(t, sink(&Event{Delta: time.Second, Kind: Output, Data: []byte("a")}))
		require.NoError(t, sink(&Event{Delta: 61 * time.Second, Kind: Output, Data: []byte("b")}))
		require.NoError(t, sink(&Event{Delta: 62 * time.Second, Kind: Input, Data: []byte("c")}))

		require.Len(t, got, 3)
		assert.Equal(t, time.Second, got[0].Delta)
		assert.Equal(t, 3*time.Second, got[1].Delta)
		assert.Equal(t, 4*time.Second, got[2].Delta)
	})

	t.Run("zero keeps timing", func(t *testing.T) {
		var got []*Event
		sink := NewIdleClampAdapter(0, func(event *Event) error {
			got = append(got, event)
			return nil
		})

		require.NoError(t, sink(&Event{Delta: time.Minute, Kind: Output, Data: []byte("a")}))
		assert.Equal(t, time.Minute, got[0].Delta)
	})
}

func TestNewRealTimePlayback(t *testing.T) {
	// maxSleep of zero disables pausing so replays are instant.
	var got []*Event
	sink := NewRealTimePlayback(0, func(event *Event) error {
		got = append(got, event)
		return nil
	})

	require.NoError(t, sink(&Event{Delta: 0, Kind: Output, Data: []byte("a")}))
	require.NoError(t, sink(&Event{Delta: time.Hour, Kind: Output, Data: []byte("b")}))
	assert.Len(t, got, 2)
}
