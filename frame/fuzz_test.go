package frame

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// FuzzParseHeaderLine exercises the frame header grammar directly (spec
// §4.1.1). It only asserts the parser never panics and that a successful
// parse never yields a negative ByteCount.
func FuzzParseHeaderLine(f *testing.F) {
	f.Add("recv 4 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:")
	f.Add("sent 0 bytes to tcp/[::1]:5060 at 2024-01-02 12:00:00.000000:")
	f.Add("recv 99999 bytes from wss/10.0.0.1:443 at 12:00:00.000000:")
	f.Add("garbage")
	f.Add("")
	f.Add("recv bytes from udp/10.0.0.1:5060 at 12:00:00.000000:")

	f.Fuzz(func(t *testing.T, line string) {
		ph, err := parseHeaderLine([]byte(line))
		if err != nil {
			return
		}
		if ph.ByteCount < 0 {
			t.Fatalf("negative ByteCount parsed from %q", line)
		}
	})
}

// FuzzReaderNext drives a Reader over arbitrary bytes. It never asserts a
// specific Frame shape — only that Next() eventually terminates in io.EOF
// or a typed fatal error, and never panics, regardless of how the boundary
// marker or frame headers are scrambled (spec §7.3: malformed input is
// reported, never fatal to the process).
func FuzzReaderNext(f *testing.F) {
	f.Add("recv 2 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\nhi\x0b\n")
	f.Add("recv 2 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\nhi")
	f.Add("\x0b\x0b\x0brecv 1 bytes from tcp/10.0.0.1:5060 at 12:00:00.000000:\na\x0b\n")
	f.Add("")

	f.Fuzz(func(t *testing.T, data string) {
		r := NewReader(strings.NewReader(data), WithMaxPayloadSize(1<<20))
		defer r.Close()

		for i := 0; i < 10_000; i++ {
			_, err := r.Next()
			if err == nil {
				continue
			}
			// Any error (io.EOF, an oversized payload, a failed source
			// read) is a non-panicking termination.
			return
		}
		t.Fatalf("Reader.Next did not terminate within bound for input %q", data)
	})
}
