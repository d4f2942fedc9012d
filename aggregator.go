package sipdump

import (
	"bytes"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sipdump/sipdump/diag"
	"github.com/sipdump/sipdump/frame"
	"github.com/sipdump/sipdump/sip"
)

// Aggregator splits a reassembled buffer that may hold several back-to-back
// SIP messages using Content-Length (spec §4.3). It reuses sip.ParseHeaders
// to locate the end of the header section and read Content-Length, the same
// routine SipParser uses for the final split — the aggregator only ever
// needs to know where the blank line is, not a typed header list.
type Aggregator struct {
	src  *Reassembler
	sink diag.Sink
	log  zerolog.Logger

	pending    []byte
	env        frame.Envelope
	frameCount int
	hasPending bool
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAggregatorSink routes Aggregator diagnostics to sink.
func WithAggregatorSink(sink diag.Sink) AggregatorOption {
	return func(a *Aggregator) { a.sink = sink }
}

// WithAggregatorLogger overrides the logger used for low-level tracing,
// distinct from the diagnostics sink.
func WithAggregatorLogger(logger zerolog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.log = logger }
}

// NewAggregator builds an Aggregator pulling reassembled messages from src.
func NewAggregator(src *Reassembler, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{src: src, sink: diag.NopSink{}, log: log.Logger}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Next returns the next split message, io.EOF at the end of the upstream,
// or the upstream's fatal error.
func (a *Aggregator) Next() (*Message, error) {
	for !a.hasPending {
		msg, err := a.src.Next()
		if err != nil {
			return nil, err
		}
		if len(msg.Content) == 0 {
			continue
		}
		a.pending = msg.Content
		a.env = msg.Envelope
		a.frameCount = msg.FrameCount
		a.hasPending = true
	}

	content, rest, _ := a.splitOne(a.pending)
	a.pending = rest
	a.hasPending = len(rest) > 0

	return &Message{
		Envelope:   a.env,
		FrameCount: a.frameCount,
		Content:    content,
	}, nil
}

// splitOne extracts the first complete SIP message from buf, per spec
// §4.3's algorithm. split is false when buf is emitted whole, either
// because no header terminator was found, Content-Length was absent or
// unparsable, or Content-Length overran the buffer.
func (a *Aggregator) splitOne(buf []byte) (msg []byte, rest []byte, split bool) {
	headers, consumed, _, err := sip.ParseHeaders(buf)
	if err != nil {
		a.sink.Observe(diag.Diagnostic{
			Event:    diag.EventAggregateNoHeaderTerminator,
			Severity: diag.SeverityDebug,
			Message:  "no blank line found, emitting remaining buffer as one message",
		})
		return buf, nil, false
	}

	cl, ok := headers.ContentLength()
	if !ok {
		a.sink.Observe(diag.Diagnostic{
			Event:    diag.EventAggregateMissingContentLen,
			Severity: diag.SeverityDebug,
			Message:  "missing or unparsable content-length, emitting remaining buffer as one message",
		})
		return buf, nil, false
	}

	bodyEnd := consumed + cl
	if bodyEnd > len(buf) {
		a.sink.Observe(diag.Diagnostic{
			Event:    diag.EventAggregateContentLengthIssue,
			Severity: diag.SeverityWarn,
			Message:  fmt.Sprintf("content-length %d overruns remaining buffer of %d bytes", cl, len(buf)-consumed),
		})
		return buf, nil, false
	}

	rest = bytes.TrimLeft(buf[bodyEnd:], " \t\r\n")
	if len(rest) > 0 {
		a.log.Debug().Int("content_length", cl).Int("remaining", len(rest)).Msg("aggregate: split back-to-back message")
		a.sink.Observe(diag.Diagnostic{
			Event:    diag.EventAggregateSplit,
			Severity: diag.SeverityDebug,
			Message:  fmt.Sprintf("split %d bytes off, %d bytes remain", bodyEnd, len(rest)),
		})
	}
	return buf[:bodyEnd], rest, true
}
