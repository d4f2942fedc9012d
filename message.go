package sipdump

import (
	"github.com/sipdump/sipdump/frame"
	"github.com/sipdump/sipdump/sip"
)

// Message is Level 2 of the pipeline: a reassembled and/or aggregated
// logical SIP message, still unparsed (spec §3 "SipMessage").
type Message struct {
	frame.Envelope

	// FrameCount is how many physical frames contributed to this message's
	// content before any aggregation split. It is inherited unchanged by
	// every split produced from the same reassembled buffer (spec §4.3.4).
	FrameCount int

	// Content is the raw bytes of this message.
	Content []byte
}

// ParsedMessage is Level 3: a Message plus its parsed SIP prefix (spec §3
// "ParsedSipMessage"). ParseErr is non-nil when the content did not begin
// with a recognisable SIP start-line; in that case StartLine, Headers and
// Body are zero and Content still holds the raw bytes for the consumer to
// inspect or skip.
type ParsedMessage struct {
	Message

	StartLine      sip.StartLine
	Headers        sip.Headers
	Body           []byte
	HeaderWarnings []sip.HeaderWarning
	ParseErr       error
}

// CallID delegates to Headers.CallID (spec §4.4 helper contract).
func (m ParsedMessage) CallID() (string, bool) { return m.Headers.CallID() }

// ContentType delegates to Headers.ContentType.
func (m ParsedMessage) ContentType() (string, bool) { return m.Headers.ContentType() }

// ContentLength delegates to Headers.ContentLength.
func (m ParsedMessage) ContentLength() (int, bool) { return m.Headers.ContentLength() }

// CSeq delegates to Headers.CSeq.
func (m ParsedMessage) CSeq() (sip.CSeqValue, bool) { return m.Headers.CSeq() }
