package output

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
)

// JSONWriter writes output in JSON format.
type JSONWriter struct {
	mu     sync.Mutex
	writer io.Writer
	pretty bool
	stream bool
	closed bool
}

// NewJSONWriter creates a new JSON writer. In stream mode cycles are written
// as one {"type","data"} event per line.
func NewJSONWriter(w io.Writer, pretty, stream bool) *JSONWriter {
	return &JSONWriter{
		writer: w,
		pretty: pretty,
		stream: stream,
	}
}

// WriteRaw writes a JSON document, re-indented when pretty is set.
func (j *JSONWriter) WriteRaw(raw json.RawMessage) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	var buf bytes.Buffer
	var err error
	if j.pretty {
		err = json.Indent(&buf, raw, "", "  ")
	} else {
		err = json.Compact(&buf, raw)
	}
	if err != nil {
		return err
	}

	return j.writeLine(buf.Bytes())
}

// WriteValue writes v as JSON.
func (j *JSONWriter) WriteValue(v interface{}) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	return j.writeJSON(v)
}

// WriteCycle writes a cycle record, wrapped as an event in stream mode.
func (j *JSONWriter) WriteCycle(rec *CycleRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	if j.stream {
		return j.writeJSON(StreamEvent{Type: "cycle", Data: rec})
	}
	return j.writeJSON(rec)
}

func (j *JSONWriter) writeJSON(v interface{}) error {
	var data []byte
	var err error

	if j.pretty && !j.stream {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	return j.writeLine(data)
}

func (j *JSONWriter) writeLine(data []byte) error {
	if _, err := j.writer.Write(data); err != nil {
		return err
	}
	_, err := j.writer.Write([]byte("\n"))
	return err
}

// Flush flushes the writer.
func (j *JSONWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if flusher, ok := j.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close closes the writer.
func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.closed = true

	if closer, ok := j.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
