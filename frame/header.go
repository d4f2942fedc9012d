package frame

import (
	"bytes"
	"fmt"
	"strconv"
)

// parsedHeader is the result of a successful frame header line parse.
type parsedHeader struct {
	Envelope  Envelope
	ByteCount int
}

// parseHeaderLine parses one frame header line against the grammar in
// spec §4.1.1:
//
//	(recv|sent) <N> bytes (from|to) <proto>/<addr> at <ts>:
//
// line must not include the trailing "\n"; it must include the trailing
// ":" the grammar requires immediately before it.
func parseHeaderLine(line []byte) (parsedHeader, error) {
	if len(line) == 0 || line[len(line)-1] != ':' {
		return parsedHeader{}, fmt.Errorf("%w: line must end with ':': %q", ErrMalformedHeader, line)
	}
	body := line[:len(line)-1]

	var dir Direction
	var prep []byte
	switch {
	case bytes.HasPrefix(body, []byte("recv ")):
		dir, prep = DirRecv, []byte("from ")
		body = body[len("recv "):]
	case bytes.HasPrefix(body, []byte("sent ")):
		dir, prep = DirSent, []byte("to ")
		body = body[len("sent "):]
	default:
		return parsedHeader{}, fmt.Errorf("%w: unknown verb in %q", ErrMalformedHeader, line)
	}

	sp := bytes.IndexByte(body, ' ')
	if sp == -1 {
		return parsedHeader{}, fmt.Errorf("%w: missing byte count in %q", ErrMalformedHeader, line)
	}
	n, err := strconv.ParseUint(string(body[:sp]), 10, 32)
	if err != nil {
		return parsedHeader{}, fmt.Errorf("%w: invalid byte count in %q", ErrMalformedHeader, line)
	}
	body = body[sp+1:]

	if !bytes.HasPrefix(body, []byte("bytes ")) {
		return parsedHeader{}, fmt.Errorf("%w: expected literal \"bytes\" in %q", ErrMalformedHeader, line)
	}
	body = body[len("bytes "):]

	if !bytes.HasPrefix(body, prep) {
		return parsedHeader{}, fmt.Errorf("%w: verb/preposition mismatch in %q", ErrMalformedHeader, line)
	}
	body = body[len(prep):]

	sp = bytes.IndexByte(body, ' ')
	if sp == -1 {
		return parsedHeader{}, fmt.Errorf("%w: missing proto/addr in %q", ErrMalformedHeader, line)
	}
	protoAddr := body[:sp]
	body = body[sp+1:]

	slash := bytes.IndexByte(protoAddr, '/')
	if slash == -1 {
		return parsedHeader{}, fmt.Errorf("%w: malformed proto/addr %q", ErrMalformedHeader, protoAddr)
	}
	transport, ok := parseTransport(protoAddr[:slash])
	if !ok {
		return parsedHeader{}, fmt.Errorf("%w: unknown transport %q", ErrMalformedHeader, protoAddr[:slash])
	}
	addr, err := parseAddress(protoAddr[slash+1:])
	if err != nil {
		return parsedHeader{}, err
	}

	if !bytes.HasPrefix(body, []byte("at ")) {
		return parsedHeader{}, fmt.Errorf("%w: expected literal \"at\" in %q", ErrMalformedHeader, line)
	}
	ts, err := parseTimestamp(body[len("at "):])
	if err != nil {
		return parsedHeader{}, err
	}

	return parsedHeader{
		Envelope: Envelope{
			Direction: dir,
			Transport: transport,
			Address:   addr,
			Timestamp: ts,
		},
		ByteCount: int(n),
	}, nil
}

// looksLikeHeaderStart performs the cheap lookahead the fallback boundary
// scan uses (spec §4.1.2.2): "(recv|sent) " followed by a digit.
func looksLikeHeaderStart(b []byte) bool {
	var rest []byte
	switch {
	case bytes.HasPrefix(b, []byte("recv ")):
		rest = b[len("recv "):]
	case bytes.HasPrefix(b, []byte("sent ")):
		rest = b[len("sent "):]
	default:
		return false
	}
	return len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9'
}
