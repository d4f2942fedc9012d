package sipdump

import (
	"github.com/google/uuid"

	"github.com/sipdump/sipdump/diag"
)

// Session identifies one Decode run. It has no meaning beyond correlating
// the Diagnostics and metrics a single pipeline instance produces, the same
// role the teacher's per-connection MessageID plays for a dialog.
type Session struct {
	ID uuid.UUID
}

// NewSession allocates a random Session ID.
func NewSession() Session {
	return Session{ID: uuid.New()}
}

func (s Session) String() string { return s.ID.String() }

// sessionSink stamps every Diagnostic with a Session ID before forwarding
// it to the host-supplied sink.
type sessionSink struct {
	id   string
	next diag.Sink
}

func (s sessionSink) Observe(d diag.Diagnostic) {
	d.SessionID = s.id
	s.next.Observe(d)
}
