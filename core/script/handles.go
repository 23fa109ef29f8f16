package script

import (
	"bufio"
	"io"
	"strings"
)

// Handle is an open filehandle: one of the standard streams, a file
// opened by a script, or the driver's input stream.
type Handle struct {
	Name string

	r      *bufio.Reader
	w      io.Writer
	closer io.Closer
	eof    bool

	// lines counts records read from this handle.
	lines int
}

func NewReadHandle(name string, r io.Reader) *Handle {
	h := &Handle{Name: name, r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		h.closer = c
	}
	return h
}

func NewWriteHandle(name string, w io.Writer) *Handle {
	h := &Handle{Name: name, w: w}
	if c, ok := w.(io.Closer); ok {
		h.closer = c
	}
	return h
}

// CanRead reports whether the handle was opened for reading.
func (h *Handle) CanRead() bool { return h.r != nil }

// EOF reports whether a read has hit the end of input.
func (h *Handle) EOF() bool {
	if h.r == nil {
		return true
	}
	if h.eof {
		return true
	}
	// Peek so that eof() can answer before the next read.
	if _, err := h.r.Peek(1); err == io.EOF {
		return true
	}
	return false
}

// ReadRecord reads one record terminated by sep, returning the record
// including its terminator. A nil sep slurps the rest of the stream.
// ok is false at end of input.
func (h *Handle) ReadRecord(sep *string) (string, bool) {
	if h.r == nil || h.eof {
		return "", false
	}
	if sep == nil {
		all, err := io.ReadAll(h.r)
		h.eof = true
		if len(all) == 0 && err != nil {
			return "", false
		}
		if len(all) == 0 {
			return "", false
		}
		h.lines++
		return string(all), true
	}
	if *sep == "" {
		return h.readParagraph()
	}
	rec, ok := h.readUntil(*sep)
	if ok {
		h.lines++
	}
	return rec, ok
}

func (h *Handle) readUntil(sep string) (string, bool) {
	var sb strings.Builder
	for {
		b, err := h.r.ReadByte()
		if err != nil {
			h.eof = true
			if sb.Len() == 0 {
				return "", false
			}
			return sb.String(), true
		}
		sb.WriteByte(b)
		if len(sep) > 0 && b == sep[len(sep)-1] && sb.Len() >= len(sep) {
			s := sb.String()
			if strings.HasSuffix(s, sep) {
				return s, true
			}
		}
	}
}

// readParagraph implements paragraph mode: records are separated by one
// or more blank lines.
func (h *Handle) readParagraph() (string, bool) {
	// Skip leading blank lines.
	for {
		peek, err := h.r.Peek(1)
		if err != nil {
			h.eof = true
			return "", false
		}
		if peek[0] != '\n' {
			break
		}
		h.r.ReadByte()
	}
	var sb strings.Builder
	blanks := 0
	for {
		b, err := h.r.ReadByte()
		if err != nil {
			h.eof = true
			if sb.Len() == 0 {
				return "", false
			}
			return sb.String() + "\n", true
		}
		if b == '\n' {
			blanks++
			if blanks == 2 {
				return sb.String() + "\n", true
			}
			sb.WriteByte(b)
			continue
		}
		if blanks == 1 {
			blanks = 0
		}
		sb.WriteByte(b)
	}
}

// Lines is the record count read so far.
func (h *Handle) Lines() int { return h.lines }

// Write sends bytes to the handle's sink, making *Handle an io.Writer.
func (h *Handle) Write(p []byte) (int, error) {
	if h.w == nil {
		return 0, errHandleNotWritable{h.Name}
	}
	return h.w.Write(p)
}

func (h *Handle) Close() error {
	h.eof = true
	if h.closer != nil {
		err := h.closer.Close()
		h.closer = nil
		return err
	}
	return nil
}

type errHandleNotWritable struct{ name string }

func (e errHandleNotWritable) Error() string {
	return "filehandle " + e.name + " opened only for input"
}
