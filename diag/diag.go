// Package diag carries the diagnostics the pipeline emits for recoverable
// conditions (truncated prefixes, byte-count mismatches, unparseable
// messages). Spec §6: "the core defines the event names and severity but
// not the sink" — Sink is that seam, injected by the host application.
package diag

import "fmt"

// Severity is the importance of a Diagnostic. None of these ever abort the
// pipeline (spec §7): they are reporting, not control flow.
type Severity int

const (
	// SeverityDebug is informational only, e.g. a byte-count mismatch on an
	// EOF-terminated final frame.
	SeverityDebug Severity = iota
	// SeverityWarn indicates skipped or discarded input, e.g. resync.
	SeverityWarn
)

func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	default:
		return "debug"
	}
}

// Event names are stable strings so a Sink can route on them without
// string-matching free-form messages.
const (
	EventFrameResync                 = "frame.resync"
	EventFrameByteCountMismatch      = "frame.byte_count_mismatch"
	EventFrameEOFTerminated          = "frame.eof_terminated"
	EventAggregateNoHeaderTerminator = "aggregate.no_header_terminator"
	EventAggregateContentLengthIssue = "aggregate.content_length_overflow"
	EventAggregateMissingContentLen  = "aggregate.missing_content_length"
	EventAggregateSplit              = "aggregate.split"
	EventSipParseError               = "sip.parse_error"
	EventSipHeaderSkipped            = "sip.header_skipped"
)

// Diagnostic is one recoverable event raised by the pipeline.
type Diagnostic struct {
	Event    string
	Severity Severity
	// Offset is the byte offset in the originating byte source where the
	// condition was observed, when known.
	Offset int64
	// Message is a short human-readable description; never includes the
	// raw dropped bytes (spec §7: "no retention of dropped bytes").
	Message string
	// SessionID identifies the Decode run that produced this diagnostic, so
	// a sink aggregating several concurrent dumps can tell them apart. Left
	// empty by stages used outside of sipdump.Decode.
	SessionID string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s (offset=%d, session=%s): %s", d.Severity, d.Event, d.Offset, d.SessionID, d.Message)
}

// Sink receives Diagnostics as the pipeline produces them. Implementations
// must not block the pipeline for long; Observe is called synchronously on
// the consuming goroutine.
type Sink interface {
	Observe(Diagnostic)
}

// NopSink discards every Diagnostic. It is the default sink so library
// consumers who don't care about diagnostics pay no cost.
type NopSink struct{}

func (NopSink) Observe(Diagnostic) {}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Observe(d Diagnostic) { f(d) }
