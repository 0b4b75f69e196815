// Package loader reads trace files from disk and normalizes every supported span shape
// into models.Span at the boundary, so the aggregation code only ever sees typed records.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"tracebench/internal/models"
)

var (
	// ErrFileNotFound marks a trace file that does not exist. The file is skipped.
	ErrFileNotFound = errors.New("trace file not found")
	// ErrMalformed marks a file whose JSON could not be decoded. The file is skipped.
	ErrMalformed = errors.New("malformed trace data")
)

// Format selects the on-disk layout of a trace file.
type Format int

const (
	// FormatLines is newline-delimited JSON: flat span records or OTLP-JSON export lines.
	FormatLines Format = iota
	// FormatDocument is a single Jaeger-style document with data[].spans[].
	FormatDocument
)

// String returns the format's name as used in configuration and flags.
func (f Format) String() string {
	switch f {
	case FormatLines:
		return "lines"
	case FormatDocument:
		return "document"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Result is the outcome of loading one file.
type Result struct {
	Path  string
	Spans []models.Span

	// Dropped counts records that were read but could not be turned into a span.
	Dropped int

	// TraceEntries counts the trace entries of a document, including ones without usable spans.
	// It is zero for line files.
	TraceEntries int

	// ServiceSpans holds every document span that carries a duration, in document order,
	// including spans without a start time. Those start at zero. It is nil for line files.
	ServiceSpans []models.Span
}

// Loader reads trace files.
type Loader struct {
	skipMalformedLines bool
	logger             *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithSkipMalformedLines makes line files drop undecodable lines instead of failing the whole file.
func WithSkipMalformedLines(skip bool) Option {
	return func(l *Loader) {
		l.skipMalformedLines = skip
	}
}

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads path in the given format. On a missing or malformed file it returns an empty
// result together with an error wrapping ErrFileNotFound or ErrMalformed.
func (l *Loader) Load(path string, format Format) (*Result, error) {
	switch format {
	case FormatLines:
		return l.LoadLines(path)
	case FormatDocument:
		return l.LoadDocument(path)
	default:
		return &Result{Path: path}, fmt.Errorf("unsupported format %s", format)
	}
}

// IsRecoverable reports whether err only affects the file it came from.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrMalformed)
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}
