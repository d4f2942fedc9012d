package sipdump

import (
	"bytes"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sipdump/sipdump/frame"
)

// Reassembler groups consecutive frames sharing (direction, transport,
// address) into a Message (spec §4.2). UDP frames never group: each
// datagram is already a complete message.
//
// Reassembler has no diagnostics sink of its own: spec §4.2's "recoverable
// header error" case is fully absorbed by frame.Reader's resync loop before
// a Frame is ever produced (reader.go emits diag.EventFrameResync for it),
// so by the time a Frame reaches here it always carries a validly parsed
// envelope. There is nothing left for Reassembler to skip.
type Reassembler struct {
	src *frame.Reader
	log zerolog.Logger

	group       *pendingGroup
	deferredErr error
}

type pendingGroup struct {
	env   frame.Envelope
	buf   bytes.Buffer
	count int
}

// ReassemblerOption configures a Reassembler.
type ReassemblerOption func(*Reassembler)

// WithReassemblerLogger overrides the logger used for low-level tracing.
func WithReassemblerLogger(logger zerolog.Logger) ReassemblerOption {
	return func(r *Reassembler) { r.log = logger }
}

// NewReassembler builds a Reassembler pulling frames from src.
func NewReassembler(src *frame.Reader, opts ...ReassemblerOption) *Reassembler {
	r := &Reassembler{src: src, log: log.Logger}
	for _, o := range opts {
		o(r)
	}
	return r
}

func groupable(a, b frame.Envelope) bool {
	return a.Transport.IsStream() && b.Transport.IsStream() && a.SameGroup(b)
}

func (r *Reassembler) emit(group *pendingGroup) *Message {
	content := make([]byte, group.buf.Len())
	copy(content, group.buf.Bytes())
	return &Message{
		Envelope:   group.env,
		FrameCount: group.count,
		Content:    content,
	}
}

// Next returns the next reassembled Message, io.EOF when the upstream is
// exhausted, or the upstream's fatal error (returned once, after any
// pending group has been flushed).
func (r *Reassembler) Next() (*Message, error) {
	if r.deferredErr != nil {
		err := r.deferredErr
		r.deferredErr = nil
		return nil, err
	}

	for {
		f, err := r.src.Next()
		if err != nil {
			if r.group != nil {
				msg := r.emit(r.group)
				r.group = nil
				r.deferredErr = err
				return msg, nil
			}
			return nil, err
		}

		if r.group != nil && groupable(r.group.env, f.Envelope) {
			r.group.buf.Write(f.Content)
			r.group.count++
			continue
		}

		var flushed *Message
		if r.group != nil {
			flushed = r.emit(r.group)
			r.log.Debug().Int("frames", r.group.count).Str("addr", r.group.env.Address.Raw).Msg("reassemble: group closed")
		}
		r.group = &pendingGroup{env: f.Envelope, count: 1}
		r.group.buf.Write(f.Content)
		if flushed != nil {
			return flushed, nil
		}
	}
}
