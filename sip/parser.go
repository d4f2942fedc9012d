package sip

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrParseLineNoCRLF is returned when a line that RFC 3261 requires to be
	// CRLF-terminated is not.
	ErrParseLineNoCRLF = errors.New("sip: line has no CRLF")
	// ErrNotSipMessage is returned when neither the request nor the response
	// start-line grammar matches.
	ErrNotSipMessage = errors.New("sip: start-line is neither a request nor a response")
)

// Parsed is the result of splitting one complete SIP message buffer into its
// start-line, ordered headers, and body (data model §3, ParsedSipMessage).
type Parsed struct {
	StartLine StartLine
	Headers   Headers
	Body      []byte

	// HeaderWarnings carries per-line header parse diagnostics that did not
	// abort the parse (spec §7: recoverable parse policy).
	HeaderWarnings []HeaderWarning
}

// Parser splits a single, already-isolated SIP message buffer into start-line,
// headers, and body. It holds no per-message state and is safe for reuse
// across messages; a Parser is typically shared across an entire trace dump.
type Parser struct {
	log zerolog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithParserLogger overrides the logger a Parser uses to report header
// parse warnings.
func WithParserLogger(logger zerolog.Logger) ParserOption {
	return func(p *Parser) { p.log = logger }
}

// NewParser creates a Parser. Without WithParserLogger it logs through the
// zerolog global logger, same default as the rest of the pipeline.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{log: log.Logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ParseMessage splits data into start-line, headers and body.
//
// data must already be a single message's bytes (the caller — sipdump's
// Aggregator — is responsible for locating message boundaries via
// Content-Length before calling this). If the start-line does not match
// either SIP grammar form, ParseMessage returns ErrNotSipMessage wrapped
// with the offending line; the caller may still forward data raw (spec
// §4.4, §7.2).
func (p *Parser) ParseMessage(data []byte) (*Parsed, error) {
	line, n, ok := nextCRLFLine(data)
	if n == 0 {
		return nil, fmt.Errorf("sip: no start-line found: %w", ErrParseLineNoCRLF)
	}
	if !ok {
		return nil, fmt.Errorf("sip: start-line %q: %w", line, ErrParseLineNoCRLF)
	}

	startLine, err := ParseStartLine(line)
	if err != nil {
		return nil, err
	}

	headers, consumed, warnings, err := ParseHeaders(data[n:])
	if err != nil {
		return nil, fmt.Errorf("sip: %w", err)
	}
	for _, w := range warnings {
		p.log.Warn().Err(w.Err).Str("line", w.Line).Msg("sip: skip header due to parse error")
	}

	body := data[n+consumed:]

	return &Parsed{
		StartLine:      startLine,
		Headers:        headers,
		Body:           body,
		HeaderWarnings: warnings,
	}, nil
}

// ParseStartLine parses the first line of a SIP message, dispatching to the
// request or response grammar based on whether it begins with "SIP/"
// (RFC 3261 S.7.1, S.7.2).
func ParseStartLine(line []byte) (StartLine, error) {
	if bytes.HasPrefix(line, []byte("SIP/")) {
		return parseStatusLine(line)
	}
	return parseRequestLine(line)
}

// parseRequestLine parses e.g. "INVITE sip:bob@example.com SIP/2.0".
func parseRequestLine(line []byte) (StartLine, error) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return StartLine{}, fmt.Errorf("%w: request line should have exactly two spaces: %q", ErrNotSipMessage, line)
	}
	version := string(parts[2])
	if version != "SIP/2.0" {
		return StartLine{}, fmt.Errorf("%w: unsupported SIP version %q", ErrNotSipMessage, version)
	}
	return StartLine{
		Kind:       KindRequest,
		Method:     RequestMethod(bytes.ToUpper(parts[0])),
		RequestURI: string(parts[1]),
		SipVersion: version,
	}, nil
}

// parseStatusLine parses e.g. "SIP/2.0 200 OK" (reason phrase may be empty).
func parseStatusLine(line []byte) (StartLine, error) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) < 2 {
		return StartLine{}, fmt.Errorf("%w: status line has too few spaces: %q", ErrNotSipMessage, line)
	}
	version := string(parts[0])
	if version != "SIP/2.0" {
		return StartLine{}, fmt.Errorf("%w: unsupported SIP version %q", ErrNotSipMessage, version)
	}
	if len(parts[1]) != 3 {
		return StartLine{}, fmt.Errorf("%w: status code must be three digits: %q", ErrNotSipMessage, parts[1])
	}
	code, err := strconv.Atoi(string(parts[1]))
	if err != nil {
		return StartLine{}, fmt.Errorf("%w: invalid status code %q", ErrNotSipMessage, parts[1])
	}
	reason := ""
	if len(parts) == 3 {
		reason = string(parts[2])
	}
	return StartLine{
		Kind:       KindResponse,
		SipVersion: version,
		StatusCode: code,
		Reason:     reason,
	}, nil
}
