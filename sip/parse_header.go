package sip

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrHeadersNoTerminator is returned by ParseHeaders when data runs out
// before the blank line (CRLF CRLF) that ends the header section.
var ErrHeadersNoTerminator = errors.New("sip: header section has no terminating blank line")

// HeaderWarning records a single header line that could not be parsed. The
// rest of the header block is still processed: a bad header line never
// aborts the whole message, matching the Parser.ParseMessage recoverable
// parse-error policy.
type HeaderWarning struct {
	Line string
	Err  error
}

func (w HeaderWarning) Error() string {
	return fmt.Sprintf("sip: skip header %q: %v", w.Line, w.Err)
}

// nextCRLFLine returns the bytes of the next line up to but excluding a
// trailing "\r\n", and the number of bytes consumed including that
// terminator. RFC 3261 S.7 requires every header line, and the terminating
// empty line, to end in CRLF; a bare LF is not accepted here.
func nextCRLFLine(data []byte) (line []byte, consumed int, ok bool) {
	i := bytes.IndexByte(data, '\n')
	if i == -1 {
		return nil, 0, false
	}
	if i == 0 || data[i-1] != '\r' {
		// Malformed line ending; the caller decides whether to treat this
		// as a hard stop or skip-and-continue.
		return data[:i], i + 1, false
	}
	return data[:i-1], i + 1, true
}

// ParseHeaders parses the header section of a SIP message: every line from
// the start of data up to (and including) the first blank line. It returns
// the parsed headers in wire order with duplicates preserved, the number of
// bytes consumed (so the caller can locate the body), and any per-line
// warnings. err is non-nil only when the blank line terminator is never
// found, meaning data is not a complete header section.
func ParseHeaders(data []byte) (headers Headers, consumed int, warnings []HeaderWarning, err error) {
	var lastHeaderIdx = -1
	for {
		line, n, ok := nextCRLFLine(data[consumed:])
		if n == 0 {
			return headers, consumed, warnings, ErrHeadersNoTerminator
		}
		consumed += n
		if !ok {
			warnings = append(warnings, HeaderWarning{Line: string(line), Err: ErrParseLineNoCRLF})
			continue
		}
		if len(line) == 0 {
			// Blank line: end of header section.
			return headers, consumed, warnings, nil
		}
		if isFoldedContinuation(line) && lastHeaderIdx >= 0 {
			headers[lastHeaderIdx].Value = headers[lastHeaderIdx].Value + " " + string(bytes.TrimSpace(line))
			continue
		}
		h, perr := parseHeaderLine(line)
		if perr != nil {
			warnings = append(warnings, HeaderWarning{Line: string(line), Err: perr})
			continue
		}
		headers = append(headers, h)
		lastHeaderIdx = len(headers) - 1
	}
}

// isFoldedContinuation reports whether line is a header continuation line
// (RFC 3261 S.7.3.1: any line beginning with SP or HTAB folds into the
// previous header's value).
func isFoldedContinuation(line []byte) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// parseHeaderLine splits a single "name:value" header line.
func parseHeaderLine(line []byte) (Header, error) {
	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return Header{}, fmt.Errorf("sip: header line has no colon: %q", line)
	}
	name := bytes.TrimSpace(line[:colon])
	if len(name) == 0 {
		return Header{}, fmt.Errorf("sip: empty header name: %q", line)
	}
	value := bytes.TrimSpace(line[colon+1:])
	return Header{Name: string(name), Value: string(value)}, nil
}
