// Package output formats command results for the terminal or a file.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Writer defines the interface for output writers.
type Writer interface {
	// WriteRaw writes a JSON document as received, keeping key order
	WriteRaw(raw json.RawMessage) error

	// WriteValue writes any JSON-encodable value
	WriteValue(v interface{}) error

	// WriteCycle writes one report cycle
	WriteCycle(rec *CycleRecord) error

	// Flush flushes any buffered output
	Flush() error

	// Close closes the writer
	Close() error
}

// Config holds output configuration.
type Config struct {
	Format   string // "json" or "text"
	Pretty   bool
	Stream   bool
	FilePath string
}

// NewWriter creates a new output writer.
func NewWriter(w io.Writer, config Config) Writer {
	switch config.Format {
	case "text":
		return NewTextWriter(w)
	default:
		return NewJSONWriter(w, config.Pretty, config.Stream)
	}
}

// Open creates a writer for config.FilePath, or stdout when it is empty.
func Open(config Config) (Writer, error) {
	if config.FilePath == "" {
		return NewWriter(nopCloser{os.Stdout}, config), nil
	}

	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return NewWriter(f, config), nil
}

type nopCloser struct {
	io.Writer
}
