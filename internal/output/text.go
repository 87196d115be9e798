package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// TextWriter writes human readable output.
type TextWriter struct {
	mu     sync.Mutex
	writer io.Writer
	closed bool
}

// NewTextWriter creates a new text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{writer: w}
}

// WriteRaw writes indented JSON; a JSON string is printed bare.
func (t *TextWriter) WriteRaw(raw json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		_, err := fmt.Fprintln(t.writer, s)
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := t.writer.Write(buf.Bytes())
	return err
}

// WriteValue writes v with its default formatting.
func (t *TextWriter) WriteValue(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	_, err := fmt.Fprintln(t.writer, v)
	return err
}

// WriteCycle writes a one-line summary followed by the posted message.
func (t *TextWriter) WriteCycle(rec *CycleRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] room=%s project=%q reported=%d skipped=%d",
		rec.StartedAt.Format("15:04:05"), rec.Trigger, rec.Room, rec.Project,
		len(rec.Reported), len(rec.Skipped))
	if rec.RunID != "" {
		fmt.Fprintf(&b, " run=%s", rec.RunID)
	}
	if rec.Error != "" {
		fmt.Fprintf(&b, " error=%q", rec.Error)
	}
	b.WriteByte('\n')
	if rec.Posted {
		for _, line := range strings.Split(rec.Message, "\n") {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(t.writer, b.String())
	return err
}

// Flush is a no-op.
func (t *TextWriter) Flush() error {
	return nil
}

// Close closes the underlying writer if it is a Closer.
func (t *TextWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if closer, ok := t.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
