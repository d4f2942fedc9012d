package diag

import "github.com/rs/zerolog"

// ZerologSink routes Diagnostics through a zerolog.Logger, the structured
// logging library the rest of this module standardises on. SeverityWarn
// maps to zerolog's Warn level, SeverityDebug to Debug.
type ZerologSink struct {
	Logger zerolog.Logger
}

// NewZerologSink builds a Sink backed by logger.
func NewZerologSink(logger zerolog.Logger) ZerologSink {
	return ZerologSink{Logger: logger}
}

func (s ZerologSink) Observe(d Diagnostic) {
	var ev *zerolog.Event
	switch d.Severity {
	case SeverityWarn:
		ev = s.Logger.Warn()
	default:
		ev = s.Logger.Debug()
	}
	ev = ev.Str("event", d.Event).Int64("offset", d.Offset)
	if d.SessionID != "" {
		ev = ev.Str("session", d.SessionID)
	}
	ev.Msg(d.Message)
}
