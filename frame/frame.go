// Package frame implements Level 1 of the sipdump pipeline: recovering
// individual frames from a FreeSWITCH mod_sofia trace dump byte stream by
// validating the "\x0B\n" boundary marker and resynchronising past
// unparseable prefixes (spec §4.1).
package frame

import "errors"

var (
	// ErrMalformedHeader is wrapped into more specific errors describing why
	// a candidate header line failed the frame header grammar.
	ErrMalformedHeader = errors.New("frame: malformed header")
	// ErrPayloadTooLarge is returned when a single frame's payload would
	// exceed the reader's configured maximum (spec §9: "implementation-defined
	// upper bound").
	ErrPayloadTooLarge = errors.New("frame: payload exceeds configured maximum")
)

// boundary is the two-byte frame terminator (spec Glossary: "Boundary").
var boundary = [2]byte{0x0B, '\n'}

// Frame is one physical log record (spec §3 "Frame").
type Frame struct {
	Envelope

	// DeclaredByteCount is the <N> value from the frame header.
	DeclaredByteCount int

	// Content is the payload bytes between the header's terminating
	// newline and the validated boundary, or the remaining stream bytes if
	// the frame was EOF-terminated.
	Content []byte

	// EOFTerminated is true when the stream ended before a boundary was
	// found; DeclaredByteCount/Content mismatch is then expected and not
	// reported as a warning-level diagnostic (spec §4.1.2.3).
	EOFTerminated bool

	// ByteCountMismatch is true when len(Content) != DeclaredByteCount.
	// Never fatal (spec invariant note in §3, policy in §7).
	ByteCountMismatch bool

	// Offset is the byte offset in the source where this frame's header
	// line began.
	Offset int64
}
