package frame

import (
	"bytes"
	"fmt"
	"strconv"
)

// Direction is the verb of a frame header line: "recv" pairs with "from",
// "sent" pairs with "to" (spec §4.1.1).
type Direction int

const (
	DirUnknown Direction = iota
	DirRecv
	DirSent
)

func (d Direction) String() string {
	switch d {
	case DirRecv:
		return "recv"
	case DirSent:
		return "sent"
	default:
		return "unknown"
	}
}

// Transport is the protocol token in a frame header's proto/addr field.
type Transport int

const (
	TransportUnknown Transport = iota
	TCP
	UDP
	TLS
	WSS
)

func (t Transport) String() string {
	switch t {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case TLS:
		return "tls"
	case WSS:
		return "wss"
	default:
		return "unknown"
	}
}

// IsStream reports whether transport is connection-oriented, i.e. whether
// the Reassembler groups its frames (spec §4.2: "UDP frames are emitted
// one-to-one regardless").
func (t Transport) IsStream() bool {
	return t != UDP
}

func parseTransport(b []byte) (Transport, bool) {
	switch string(b) {
	case "tcp":
		return TCP, true
	case "udp":
		return UDP, true
	case "tls":
		return TLS, true
	case "wss":
		return WSS, true
	default:
		return TransportUnknown, false
	}
}

// Address is a printable endpoint, either IPv4 "host:port" or a bracketed
// IPv6 literal "[host]:port" (spec §4.1.1).
type Address struct {
	Raw    string
	Host   string
	Port   int
	IsIPv6 bool
}

func (a Address) String() string { return a.Raw }

func parseAddress(b []byte) (Address, error) {
	raw := string(b)
	if len(b) == 0 {
		return Address{}, fmt.Errorf("%w: empty address", ErrMalformedHeader)
	}
	if b[0] == '[' {
		end := bytes.IndexByte(b, ']')
		if end == -1 || end+1 >= len(b) || b[end+1] != ':' {
			return Address{}, fmt.Errorf("%w: malformed IPv6 literal %q", ErrMalformedHeader, raw)
		}
		port, err := strconv.Atoi(string(b[end+2:]))
		if err != nil {
			return Address{}, fmt.Errorf("%w: bad port in %q", ErrMalformedHeader, raw)
		}
		return Address{Raw: raw, Host: string(b[1:end]), Port: port, IsIPv6: true}, nil
	}
	idx := bytes.LastIndexByte(b, ':')
	if idx == -1 {
		return Address{}, fmt.Errorf("%w: address missing port %q", ErrMalformedHeader, raw)
	}
	port, err := strconv.Atoi(string(b[idx+1:]))
	if err != nil {
		return Address{}, fmt.Errorf("%w: bad port in %q", ErrMalformedHeader, raw)
	}
	return Address{Raw: raw, Host: string(b[:idx]), Port: port}, nil
}

// Timestamp is either a time-of-day or a full calendar date + time-of-day
// (spec §4.1.1). It is preserved for fidelity but never arithmetically
// interpreted by the pipeline (spec §9: "Timestamps are opaque").
type Timestamp struct {
	Raw                               string
	HasDate                           bool
	Year, Month, Day                  int
	Hour, Minute, Second, Microsecond int
}

func (t Timestamp) String() string { return t.Raw }

func parseTimestamp(b []byte) (Timestamp, error) {
	raw := string(b)
	var datePart, timePart []byte
	hasDate := false
	if sp := bytes.IndexByte(b, ' '); sp != -1 {
		hasDate = true
		datePart = b[:sp]
		timePart = b[sp+1:]
	} else {
		timePart = b
	}

	ts := Timestamp{Raw: raw, HasDate: hasDate}

	if hasDate {
		y, m, d, err := parseDate(datePart)
		if err != nil {
			return Timestamp{}, err
		}
		ts.Year, ts.Month, ts.Day = y, m, d
	}

	hh, mm, ss, micro, err := parseTimeOfDay(timePart)
	if err != nil {
		return Timestamp{}, err
	}
	ts.Hour, ts.Minute, ts.Second, ts.Microsecond = hh, mm, ss, micro
	return ts, nil
}

func parseDate(b []byte) (year, month, day int, err error) {
	parts := bytes.Split(b, []byte("-"))
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: malformed date %q", ErrMalformedHeader, b)
	}
	year, err = strconv.Atoi(string(parts[0]))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: malformed date %q", ErrMalformedHeader, b)
	}
	month, err = strconv.Atoi(string(parts[1]))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: malformed date %q", ErrMalformedHeader, b)
	}
	day, err = strconv.Atoi(string(parts[2]))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: malformed date %q", ErrMalformedHeader, b)
	}
	return year, month, day, nil
}

func parseTimeOfDay(b []byte) (hour, min, sec, micro int, err error) {
	dot := bytes.IndexByte(b, '.')
	if dot == -1 {
		return 0, 0, 0, 0, fmt.Errorf("%w: time-of-day missing microseconds %q", ErrMalformedHeader, b)
	}
	secPart, microPart := b[:dot], b[dot+1:]
	hms := bytes.Split(secPart, []byte(":"))
	if len(hms) != 3 {
		return 0, 0, 0, 0, fmt.Errorf("%w: malformed time-of-day %q", ErrMalformedHeader, b)
	}
	hour, err = strconv.Atoi(string(hms[0]))
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%w: malformed time-of-day %q", ErrMalformedHeader, b)
	}
	min, err = strconv.Atoi(string(hms[1]))
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%w: malformed time-of-day %q", ErrMalformedHeader, b)
	}
	sec, err = strconv.Atoi(string(hms[2]))
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%w: malformed time-of-day %q", ErrMalformedHeader, b)
	}
	micro, err = strconv.Atoi(string(microPart))
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%w: malformed microseconds %q", ErrMalformedHeader, b)
	}
	return hour, min, sec, micro, nil
}

// Envelope is the tuple (direction, transport, address, timestamp) attached
// to a frame or message (spec Glossary: "Envelope").
type Envelope struct {
	Direction Direction
	Transport Transport
	Address   Address
	Timestamp Timestamp
}

// SameGroup reports whether two envelopes share the grouping key the
// Reassembler uses: (direction, transport, address) (spec §4.2).
func (e Envelope) SameGroup(o Envelope) bool {
	return e.Direction == o.Direction && e.Transport == o.Transport && e.Address.Raw == o.Address.Raw
}
