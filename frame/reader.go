package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sipdump/sipdump/diag"
)

// defaultInitialBufferSize matches spec §4.1.4's recommendation of "at
// least a few frame widths (recommended initial 64 KiB)".
const defaultInitialBufferSize = 64 * 1024

// defaultMaxPayloadSize bounds a single frame's payload. spec §9 leaves the
// limit implementation-defined; 4 MiB sits comfortably above the "< 1 MiB"
// production ceiling noted in spec §5.
const defaultMaxPayloadSize = 4 * 1024 * 1024

// readChunkSize is how much is pulled from the source per underlying Read.
const readChunkSize = 32 * 1024

var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// Reader recovers Frames from a byte stream (spec §4.1). It is single-use:
// construct one per byte source, call Next until it returns io.EOF or a
// fatal error, then Close to release its buffer.
type Reader struct {
	src        io.Reader
	log        zerolog.Logger
	sink       diag.Sink
	maxPayload int

	buf            *bytes.Buffer
	initialBufSize int
	absOffset      int64
	eof            bool
	fatal          error
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithReaderLogger overrides the logger used for low-level tracing.
// Diagnostics (resync, mismatches) go through the Sink, not this logger.
func WithReaderLogger(logger zerolog.Logger) ReaderOption {
	return func(r *Reader) { r.log = logger }
}

// WithDiagSink routes Diagnostics to sink instead of the default no-op sink.
func WithDiagSink(sink diag.Sink) ReaderOption {
	return func(r *Reader) { r.sink = sink }
}

// WithMaxPayloadSize overrides the payload cap enforced during fallback
// boundary scanning (spec §9's "implementation-defined upper bound").
func WithMaxPayloadSize(n int) ReaderOption {
	return func(r *Reader) { r.maxPayload = n }
}

// WithInitialBufferSize pre-grows the internal buffer, avoiding early
// reallocation for sources known to carry large frames.
func WithInitialBufferSize(n int) ReaderOption {
	return func(r *Reader) { r.initialBufSize = n }
}

// NewReader constructs a frame Reader over src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:            src,
		log:            log.Logger,
		sink:           diag.NopSink{},
		maxPayload:     defaultMaxPayloadSize,
		initialBufSize: defaultInitialBufferSize,
	}
	for _, o := range opts {
		o(r)
	}
	r.buf = bufPool.Get().(*bytes.Buffer)
	r.buf.Reset()
	r.buf.Grow(r.initialBufSize)
	return r
}

// Close releases the Reader's internal buffer back to the shared pool.
// The Reader must not be used afterwards.
func (r *Reader) Close() {
	if r.buf != nil {
		bufPool.Put(r.buf)
		r.buf = nil
	}
}

func (r *Reader) emit(d diag.Diagnostic) {
	r.sink.Observe(d)
}

// fill reads one chunk from the source into the buffer. It returns io.EOF
// once the source is exhausted (a sticky condition recorded in r.eof); any
// other error is fatal per spec §7.3.
func (r *Reader) fill() error {
	if r.eof {
		return io.EOF
	}
	chunk := make([]byte, readChunkSize)
	n, err := r.src.Read(chunk)
	if n > 0 {
		r.buf.Write(chunk[:n])
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.eof = true
			return io.EOF
		}
		return fmt.Errorf("frame: reading source: %w", err)
	}
	return nil
}

// Next returns the next Frame, io.EOF when the stream is cleanly exhausted,
// or a fatal error (spec §7.3) which also ends all future calls.
func (r *Reader) Next() (*Frame, error) {
	if r.fatal != nil {
		return nil, r.fatal
	}

	for r.buf.Len() == 0 && !r.eof {
		if err := r.fill(); err != nil && !errors.Is(err, io.EOF) {
			r.fatal = err
			return nil, err
		}
	}
	if r.buf.Len() == 0 {
		return nil, io.EOF
	}

	ph, headerLen, headerOffset, err := r.syncToHeader()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		r.fatal = err
		return nil, err
	}

	r.advance(headerLen)

	content, eofTerminated, mismatch, err := r.readContent(ph.ByteCount)
	if err != nil {
		r.fatal = err
		return nil, err
	}

	if mismatch && !eofTerminated {
		r.emit(diag.Diagnostic{
			Event:    diag.EventFrameByteCountMismatch,
			Severity: diag.SeverityDebug,
			Offset:   headerOffset,
			Message:  fmt.Sprintf("declared %d bytes, boundary found after %d", ph.ByteCount, len(content)),
		})
	}
	if eofTerminated {
		r.emit(diag.Diagnostic{
			Event:    diag.EventFrameEOFTerminated,
			Severity: diag.SeverityDebug,
			Offset:   headerOffset,
			Message:  fmt.Sprintf("stream ended before boundary, emitted %d bytes", len(content)),
		})
	}

	return &Frame{
		Envelope:          ph.Envelope,
		DeclaredByteCount: ph.ByteCount,
		Content:           content,
		EOFTerminated:     eofTerminated,
		ByteCountMismatch: mismatch,
		Offset:            headerOffset,
	}, nil
}

// advance consumes n bytes from the front of the buffer and tracks the
// absolute stream offset.
func (r *Reader) advance(n int) {
	r.buf.Next(n)
	r.absOffset += int64(n)
}

// syncToHeader ensures the buffer starts with a valid frame header,
// discarding and reporting any unparseable prefix first (spec §4.1.3).
func (r *Reader) syncToHeader() (parsedHeader, int, int64, error) {
	discarded := 0
	startOffset := r.absOffset
	for {
		if ph, n, ok := tryParseHeaderAt(r.buf.Bytes()); ok {
			if discarded > 0 {
				r.emit(diag.Diagnostic{
					Event:    diag.EventFrameResync,
					Severity: diag.SeverityWarn,
					Offset:   startOffset,
					Message:  fmt.Sprintf("truncated prefix of %d bytes discarded", discarded),
				})
			}
			return ph, n, r.absOffset, nil
		}

		next := indexNextVerb(r.buf.Bytes(), 1)
		if next == -1 {
			if r.eof {
				n := r.buf.Len()
				if n > 0 {
					discarded += n
					r.advance(n)
					r.emit(diag.Diagnostic{
						Event:    diag.EventFrameResync,
						Severity: diag.SeverityWarn,
						Offset:   startOffset,
						Message:  fmt.Sprintf("truncated prefix of %d bytes discarded", discarded),
					})
				}
				return parsedHeader{}, 0, 0, io.EOF
			}
			if err := r.fill(); err != nil && !errors.Is(err, io.EOF) {
				return parsedHeader{}, 0, 0, err
			}
			continue
		}

		discarded += next
		r.advance(next)
	}
}

// tryParseHeaderAt attempts a header parse at the very start of buf.
func tryParseHeaderAt(buf []byte) (parsedHeader, int, bool) {
	i := bytes.IndexByte(buf, '\n')
	if i == -1 {
		return parsedHeader{}, 0, false
	}
	ph, err := parseHeaderLine(buf[:i])
	if err != nil {
		return parsedHeader{}, 0, false
	}
	return ph, i + 1, true
}

// indexNextVerb finds the next position at or after from where buf could
// begin a frame header ("recv " or "sent ").
func indexNextVerb(buf []byte, from int) int {
	if from >= len(buf) {
		return -1
	}
	tail := buf[from:]
	ir := bytes.Index(tail, []byte("recv "))
	is := bytes.Index(tail, []byte("sent "))
	switch {
	case ir == -1 && is == -1:
		return -1
	case ir == -1:
		return from + is
	case is == -1:
		return from + ir
	case ir < is:
		return from + ir
	default:
		return from + is
	}
}

// readContent implements the byte-count-first boundary strategy of
// spec §4.1.2.
func (r *Reader) readContent(declared int) (content []byte, eofTerminated bool, mismatch bool, err error) {
	for r.buf.Len() < declared+2 && !r.eof {
		if err := r.fill(); err != nil && !errors.Is(err, io.EOF) {
			return nil, false, false, err
		}
	}

	buf := r.buf.Bytes()
	if len(buf) >= declared+2 && buf[declared] == boundary[0] && buf[declared+1] == boundary[1] {
		content = cloneBytes(buf[:declared])
		r.advance(declared + 2)
		return content, false, false, nil
	}

	idx, found, err := r.scanForBoundary()
	if err != nil {
		return nil, false, false, err
	}
	if found {
		buf = r.buf.Bytes()
		content = cloneBytes(buf[:idx])
		r.advance(idx + 2)
		return content, false, idx != declared, nil
	}

	buf = r.buf.Bytes()
	content = cloneBytes(buf)
	r.advance(len(buf))
	return content, true, len(content) != declared, nil
}

// scanForBoundary implements the fallback scan of spec §4.1.2.2: find the
// first "\x0B\n" immediately followed by what looks like the next frame
// header, growing the buffer as needed up to maxPayload.
func (r *Reader) scanForBoundary() (int, bool, error) {
	searchFrom := 0
	for {
		buf := r.buf.Bytes()
		if len(buf) > r.maxPayload {
			return 0, false, fmt.Errorf("%w: scanned %d bytes without a boundary", ErrPayloadTooLarge, len(buf))
		}

		idx := searchFrom
		for {
			rel := bytes.Index(buf[idx:], boundary[:])
			if rel == -1 {
				break
			}
			pos := idx + rel
			after := pos + 2
			if after == len(buf) && r.eof {
				return pos, true, nil
			}
			if after < len(buf) && looksLikeHeaderStart(buf[after:]) {
				return pos, true, nil
			}
			idx = pos + 1
		}

		if r.eof {
			return 0, false, nil
		}
		// A candidate within the last 7 bytes may lack the lookahead
		// ("\x0B\n" + "recv " + digit) needed to decide it; rescan it
		// once more bytes arrive.
		if len(buf) > 7 {
			searchFrom = len(buf) - 7
		}
		if err := r.fill(); err != nil && !errors.Is(err, io.EOF) {
			return 0, false, err
		}
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
