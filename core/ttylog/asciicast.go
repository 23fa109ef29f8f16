package ttylog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// FileExt is the suggested file extension for recordings.
const FileExt = "cast"

// Header is the first line of an asciicast v2 recording.
//
// See: https://github.com/asciinema/asciinema/blob/develop/doc/asciicast-v2.md
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp,omitempty"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

func writeJSONLine(w io.Writer, structure interface{}) error {
	line, err := json.Marshal(structure)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", string(line))
	return err
}

// NewAsciicastLogSink creates a LogSink that writes the asciicast v2
// format. The header goes out with the first event so empty sessions
// leave an empty file. Zero dimensions fall back to a standard 80x24
// so players always have something workable.
func NewAsciicastLogSink(w io.Writer, header Header) LogSink {
	var once sync.Once

	return func(event *Event) error {
		var headerErr error
		once.Do(func() {
			h := header
			h.Version = 2
			if h.Width == 0 {
				h.Width = 80
			}
			if h.Height == 0 {
				h.Height = 24
			}
			headerErr = writeJSONLine(w, h)
		})
		if headerErr != nil {
			return headerErr
		}

		direction := "o"
		if event.Kind == Input {
			direction = "i"
		}
		return writeJSONLine(w, &asciicastLogLine{event.Delta.Seconds(), direction, string(event.Data)})
	}
}

// AsciicastLogSource reads events from an asciicast v2 recording.
type AsciicastLogSource struct {
	r      *bufio.Reader
	header *Header
}

var _ LogSource = (*AsciicastLogSource)(nil)

// NewAsciicastLogSource reads log events from an asciicast formatted file.
func NewAsciicastLogSource(r io.Reader) *AsciicastLogSource {
	return &AsciicastLogSource{r: bufio.NewReader(r)}
}

// Header parses the recording's header.
func (log *AsciicastLogSource) Header() (*Header, error) {
	if log.header != nil {
		return log.header, nil
	}

	line, err := log.r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != 2 {
		return nil, fmt.Errorf("unsupported asciicast version %d", header.Version)
	}

	log.header = &header
	return log.header, nil
}

// Next gets the next log entry, it returns io.EOF if there are no more.
func (log *AsciicastLogSource) Next() (*Event, error) {
	if _, err := log.Header(); err != nil {
		return nil, err
	}

	for {
		line, err := log.r.ReadBytes('\n')
		if err != nil {
			return nil, err
		}

		if len(line) == 1 {
			// Skip blank lines
			continue
		}

		var asciicastLine asciicastLogLine
		if err := json.Unmarshal(line, &asciicastLine); err != nil {
			return nil, err
		}

		// Marker and resize events pass through unplayed.
		var kind EventKind
		switch asciicastLine.EventType {
		case "o":
			kind = Output
		case "i":
			kind = Input
		default:
			continue
		}

		return &Event{
			Delta: time.Duration(asciicastLine.TimeSeconds * float64(time.Second)),
			Kind:  kind,
			Data:  []byte(asciicastLine.EventData),
		}, nil
	}
}

type asciicastLogLine struct {
	TimeSeconds float64
	EventType   string
	EventData   string
}

func (log *asciicastLogLine) UnmarshalJSON(data []byte) error {
	var v []interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if count := len(v); count != 3 {
		return fmt.Errorf("malformed line, expected 3 entries got %d", count)
	}

	var timeOk, typeOk, dataOk bool
	log.TimeSeconds, timeOk = v[0].(float64)
	log.EventType, typeOk = v[1].(string)
	log.EventData, dataOk = v[2].(string)

	if !timeOk || !typeOk || !dataOk {
		return fmt.Errorf("malformed data in line: %q", v)
	}

	return nil
}

func (log *asciicastLogLine) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{log.TimeSeconds, log.EventType, log.EventData})
}
