// Package ttylog records terminal sessions and plays them back. The
// on-disk format is asciicast v2, so recordings replay in asciinema
// and its web player as well as with the built-in player.
package ttylog

import (
	"io"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/sigil-lang/sigil/core/vos"
)

var crlf = regexp.MustCompile(`\r?\n`)

// EventKind says which direction terminal data flowed.
type EventKind int

const (
	// Output is data written to the terminal, stderr folded in.
	Output EventKind = iota
	// Input is data typed by the user.
	Input
)

// Event is one timed burst of terminal data.
type Event struct {
	// Delta is the time since the start of the recording.
	Delta time.Duration
	Kind  EventKind
	Data  []byte
}

// LogSink receives log events.
type LogSink func(event *Event) error

// LogSource adapts log readers.
type LogSource interface {
	// Next fetches the next available log entry. It returns io.EOF if
	// the source has no more log entries.
	Next() (*Event, error)
}

// NewRealTimePlayback plays back the results in real-time.
// If maxSleep > 0, it's used as the maximum duration to pause.
func NewRealTimePlayback(maxSleep time.Duration, next LogSink) LogSink {
	var once sync.Once
	var prev time.Duration

	return func(event *Event) error {
		once.Do(func() {
			prev = event.Delta
		})

		gap := event.Delta - prev
		prev = event.Delta

		if maxSleep > 0 {
			if gap > maxSleep {
				gap = maxSleep
			}
			if gap > 0 {
				time.Sleep(gap)
			}
		}

		return next(event)
	}
}

// NewCRLFAdapter rewrites bare newlines as CRLF. The sandbox writes
// newline-only output; raw terminals need the carriage return or
// playback stair-steps across the screen.
func NewCRLFAdapter(next LogSink) LogSink {
	return func(event *Event) error {
		if event.Kind == Output {
			event.Data = crlf.ReplaceAll(event.Data, []byte("\r\n"))
		}

		return next(event)
	}
}

// NewIdleClampAdapter caps the gap before each event at maxIdle and
// shifts every later event earlier to match, so long pauses compact
// while the rest of the pacing survives. A maxIdle of zero passes
// timing through untouched.
func NewIdleClampAdapter(maxIdle time.Duration, next LogSink) LogSink {
	var prevIn, prevOut time.Duration

	return func(event *Event) error {
		gap := event.Delta - prevIn
		if maxIdle > 0 && gap > maxIdle {
			gap = maxIdle
		}
		prevIn = event.Delta
		prevOut += gap

		clamped := *event
		clamped.Delta = prevOut
		return next(&clamped)
	}
}

// NewClientOutput writes the output side of a recording to the given
// writer, dropping the keystrokes.
func NewClientOutput(w io.Writer) LogSink {
	return func(event *Event) error {
		if event.Kind != Output {
			return nil
		}
		_, err := w.Write(event.Data)
		return err
	}
}

// Replay reads a stream of events to a callback.
func Replay(recording LogSource, callback LogSink) (err error) {
	for {
		event, err := recording.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if err := callback(event); err != nil {
			return err
		}
	}
}

// Recorder wraps a process's stdio and forwards a copy of everything
// crossing it to a LogSink.
type Recorder struct {
	*vos.VIOAdapter
	mutex  sync.Mutex
	now    vos.TimeSource
	start  time.Time
	output LogSink
}

func (r *Recorder) recordIO(kind EventKind, data []byte) {
	event := &Event{
		Delta: r.now().Sub(r.start),
		Kind:  kind,
		Data:  data,
	}

	r.mutex.Lock()
	err := r.output(event)
	r.mutex.Unlock()
	if err != nil {
		log.Print(err)
	}
}

var _ vos.VIO = (*Recorder)(nil)

type recorderReadCloser struct {
	r       *Recorder
	kind    EventKind
	wrapped io.ReadCloser
}

var _ io.ReadCloser = (*recorderReadCloser)(nil)

func (rc *recorderReadCloser) Read(p []byte) (int, error) {
	amount, err := rc.wrapped.Read(p)
	if err == nil {
		rc.r.recordIO(rc.kind, p[:amount])
	}
	return amount, err
}

func (rc *recorderReadCloser) Close() error {
	return rc.wrapped.Close()
}

type recorderWriteCloser struct {
	r       *Recorder
	kind    EventKind
	wrapped io.WriteCloser
}

var _ io.WriteCloser = (*recorderWriteCloser)(nil)

func (rc *recorderWriteCloser) Write(p []byte) (int, error) {
	amount, err := rc.wrapped.Write(p)
	if err == nil {
		rc.r.recordIO(rc.kind, p[:amount])
	}
	return amount, err
}

func (rc *recorderWriteCloser) Close() error {
	return rc.wrapped.Close()
}

// NewRecorder creates a recorder that forwards all events to output.
// Times come from the given clock so sandboxes with a seeded clock
// produce identical recordings for identical sessions.
func NewRecorder(toWrap vos.VIO, now vos.TimeSource, output LogSink) *Recorder {
	recorder := &Recorder{
		now:    now,
		start:  now(),
		output: output,
	}

	recorder.VIOAdapter = vos.NewVIOAdapter(
		&recorderReadCloser{kind: Input, r: recorder, wrapped: toWrap.Stdin()},
		&recorderWriteCloser{kind: Output, r: recorder, wrapped: toWrap.Stdout()},
		&recorderWriteCloser{kind: Output, r: recorder, wrapped: toWrap.Stderr()},
	)

	return recorder
}
