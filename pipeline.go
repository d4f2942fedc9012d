// Package sipdump recovers SIP messages from a FreeSWITCH mod_sofia trace
// dump byte stream. It layers four pull-based stages — frame.Reader,
// Reassembler, Aggregator and sip.Parser — on top of any io.Reader and
// exposes them either individually or through the Decode convenience
// constructor.
package sipdump

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sipdump/sipdump/diag"
	"github.com/sipdump/sipdump/frame"
	"github.com/sipdump/sipdump/sip"
)

type pipelineConfig struct {
	sink       diag.Sink
	logger     zerolog.Logger
	maxPayload int
	hasMax     bool
	session    Session
}

// Option configures Decode.
type Option func(*pipelineConfig)

// WithSink routes every stage's diagnostics to sink (spec §6: "Diagnostics
// channel ... routed to an external structured-logging sink injected by the
// host"). The default is diag.NopSink{}.
func WithSink(sink diag.Sink) Option {
	return func(c *pipelineConfig) { c.sink = sink }
}

// WithLogger overrides the zerolog.Logger used for low-level tracing
// distinct from the diagnostics channel (parse warnings logged by
// sip.Parser).
func WithLogger(logger zerolog.Logger) Option {
	return func(c *pipelineConfig) { c.logger = logger }
}

// WithMaxPayloadSize overrides the frame reader's payload cap.
func WithMaxPayloadSize(n int) Option {
	return func(c *pipelineConfig) { c.maxPayload = n; c.hasMax = true }
}

// WithSession pins the Decode run's Session instead of generating a random
// one, useful for tests or for correlating a Decode call with an ID from
// the host application.
func WithSession(s Session) Option {
	return func(c *pipelineConfig) { c.session = s }
}

// Pipeline wires FrameReader -> Reassembler -> Aggregator -> Parser into a
// single pull-based producer of ParsedMessage values.
type Pipeline struct {
	reader  *frame.Reader
	agg     *Aggregator
	parser  *sip.Parser
	sink    diag.Sink
	Session Session
}

// Decode builds a Pipeline over src. Call Next until io.EOF (or another
// error), then Close to release the frame reader's pooled buffer; reaching
// io.EOF does not release it by itself.
func Decode(src io.Reader, opts ...Option) *Pipeline {
	cfg := &pipelineConfig{sink: diag.NopSink{}, logger: log.Logger, session: NewSession()}
	for _, o := range opts {
		o(cfg)
	}

	stampedSink := sessionSink{id: cfg.session.String(), next: cfg.sink}

	readerOpts := []frame.ReaderOption{
		frame.WithReaderLogger(cfg.logger),
		frame.WithDiagSink(stampedSink),
	}
	if cfg.hasMax {
		readerOpts = append(readerOpts, frame.WithMaxPayloadSize(cfg.maxPayload))
	}

	fr := frame.NewReader(src, readerOpts...)
	re := NewReassembler(fr, WithReassemblerLogger(cfg.logger))
	ag := NewAggregator(re, WithAggregatorSink(stampedSink), WithAggregatorLogger(cfg.logger))
	parser := sip.NewParser(sip.WithParserLogger(cfg.logger))

	return &Pipeline{reader: fr, agg: ag, parser: parser, sink: stampedSink, Session: cfg.session}
}

// Close releases resources held by the pipeline's frame reader.
func (p *Pipeline) Close() {
	p.reader.Close()
}

// Next returns the next ParsedMessage. A non-nil ParseErr on the returned
// value means the aggregated bytes did not form a valid SIP message; the
// pipeline still advances and the raw bytes are available via Content
// (spec §7.2: recoverable parse errors never end iteration). Next returns
// io.EOF when the source is exhausted and any other error is fatal.
func (p *Pipeline) Next() (*ParsedMessage, error) {
	msg, err := p.agg.Next()
	if err != nil {
		return nil, err
	}

	pm := &ParsedMessage{Message: *msg}
	parsed, perr := p.parser.ParseMessage(msg.Content)
	if perr != nil {
		pm.ParseErr = perr
		p.sink.Observe(diag.Diagnostic{
			Event:    diag.EventSipParseError,
			Severity: diag.SeverityWarn,
			Message:  perr.Error(),
		})
		return pm, nil
	}

	pm.StartLine = parsed.StartLine
	pm.Headers = parsed.Headers
	pm.Body = parsed.Body
	pm.HeaderWarnings = parsed.HeaderWarnings
	for _, w := range parsed.HeaderWarnings {
		p.sink.Observe(diag.Diagnostic{
			Event:    diag.EventSipHeaderSkipped,
			Severity: diag.SeverityDebug,
			Message:  w.Error(),
		})
	}
	return pm, nil
}
