package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/colorfulnotion/elfvm/elferrors"
	"github.com/colorfulnotion/elfvm/log"
	"github.com/klauspost/compress/zstd"
)

// JSONLTraceWriter writes TraceStep records as JSON Lines (one JSON object per line).
// It is safe for concurrent use by multiple goroutines.
type JSONLTraceWriter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	buf     *bufio.Writer
	zw      *zstd.Encoder // set when the output is compressed
	closer  io.Closer     // only set when we own the underlying writer
	closed  bool
	written uint64
}

// NewJSONLTraceWriter writes to w. The writer passed in is NOT closed by
// JSONLTraceWriter; Close only flushes.
func NewJSONLTraceWriter(w io.Writer) *JSONLTraceWriter {
	return newJSONLTraceWriter(w, nil, nil)
}

func newJSONLTraceWriter(w io.Writer, zw *zstd.Encoder, closer io.Closer) *JSONLTraceWriter {
	buf := bufio.NewWriterSize(w, 64*1024)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &JSONLTraceWriter{
		enc:    enc,
		buf:    buf,
		zw:     zw,
		closer: closer,
	}
}

// NewJSONLTraceWriterFile creates path and returns a writer that owns it.
// Paths ending in ".zst" are zstd compressed.
func NewJSONLTraceWriterFile(path string) (*JSONLTraceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressed(path) {
		return newJSONLTraceWriter(f, nil, f), nil
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd writer for %s: %w", path, err)
	}
	return newJSONLTraceWriter(zw, zw, f), nil
}

// NewJSONLTraceWriterStream writes to an interactive stream such as stdout
// with a small buffer. out is not closed.
func NewJSONLTraceWriterStream(out io.Writer) *JSONLTraceWriter {
	w := NewJSONLTraceWriter(out)
	w.buf = bufio.NewWriterSize(out, 4*1024)
	w.enc = json.NewEncoder(w.buf)
	w.enc.SetEscapeHTML(false)
	return w
}

func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// WriteStep encodes a single TraceStep followed by a newline.
func (w *JSONLTraceWriter) WriteStep(step *TraceStep) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return elferrors.ErrTTraceWriterClosed
	}
	if err := w.enc.Encode(step); err != nil {
		return err
	}
	w.written++
	return nil
}

// Flush forces buffered data to the underlying writer.
func (w *JSONLTraceWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return elferrors.ErrTTraceWriterClosed
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.zw != nil {
		return w.zw.Flush()
	}
	return nil
}

// Close flushes any buffered data and closes the file if the writer owns it.
func (w *JSONLTraceWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	log.Debug(log.TraceMonitoring, "trace closed", "steps", w.written)

	err := w.buf.Flush()
	if w.zw != nil {
		if zerr := w.zw.Close(); err == nil {
			err = zerr
		}
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadSteps decodes every TraceStep in r.
func ReadSteps(r io.Reader) ([]*TraceStep, error) {
	dec := json.NewDecoder(r)
	var steps []*TraceStep
	for {
		var s TraceStep
		err := dec.Decode(&s)
		if err == io.EOF {
			return steps, nil
		}
		if err != nil {
			return steps, fmt.Errorf("trace record %d: %w", len(steps), err)
		}
		steps = append(steps, &s)
	}
}

// ReadStepsFile reads a trace file, decompressing ".zst" paths.
func ReadStepsFile(path string) ([]*TraceStep, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if !IsCompressed(path) {
		return ReadSteps(f)
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return ReadSteps(zr)
}
