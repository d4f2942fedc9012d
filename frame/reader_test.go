package frame

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipdump/sipdump/diag"
)

func TestReader_SingleUDPFrame(t *testing.T) {
	raw := "recv 50 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\n" +
		strings.Repeat("x", 50) + "\x0b\n"
	r := NewReader(strings.NewReader(raw))
	defer r.Close()

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, DirRecv, f.Direction)
	assert.Equal(t, UDP, f.Transport)
	assert.Equal(t, 50, f.DeclaredByteCount)
	assert.Len(t, f.Content, 50)
	assert.False(t, f.ByteCountMismatch)
	assert.False(t, f.EOFTerminated)

	_, err = r.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReader_TwoConsecutiveFrames(t *testing.T) {
	raw := "recv 4 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\n" +
		"ping" + "\x0b\n" +
		"sent 4 bytes to udp/10.0.0.1:5060 at 12:00:01.000000:\n" +
		"pong" + "\x0b\n"
	r := NewReader(strings.NewReader(raw))
	defer r.Close()

	f1, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(f1.Content))

	f2, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(f2.Content))
	assert.Equal(t, DirSent, f2.Direction)
}

func TestReader_StrayBoundaryInsidePayload(t *testing.T) {
	// The payload contains a literal 0x0B 0x0A pair not followed by
	// anything header-shaped, so the byte-count-first check must win and
	// the stray bytes stay in the content.
	payload := "abc\x0b\ndef"
	raw := "recv 8 bytes from tcp/10.0.0.1:5060 at 12:00:00.000000:\n" +
		payload + "\x0b\n"
	r := NewReader(strings.NewReader(raw))
	defer r.Close()

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, payload, string(f.Content))
	assert.False(t, f.ByteCountMismatch)
}

func TestReader_ResyncOverCorruptPrefix(t *testing.T) {
	raw := "garbage-that-is-not-a-header\n" +
		"recv 3 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\n" +
		"abc" + "\x0b\n"
	var diags []string
	r := NewReader(strings.NewReader(raw), WithDiagSink(diag.SinkFunc(func(d diag.Diagnostic) {
		diags = append(diags, d.Event)
	})))
	defer r.Close()

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(f.Content))
	assert.Contains(t, diags, diag.EventFrameResync)
}

func TestReader_EOFTerminatedFinalFrame(t *testing.T) {
	raw := "recv 20 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\n" +
		"short"
	r := NewReader(strings.NewReader(raw))
	defer r.Close()

	f, err := r.Next()
	require.NoError(t, err)
	assert.True(t, f.EOFTerminated)
	assert.Equal(t, "short", string(f.Content))
	assert.True(t, f.ByteCountMismatch)

	_, err = r.Next()
	assert.Error(t, err)
}

func TestReader_ZeroLengthPayload(t *testing.T) {
	raw := "recv 0 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\n" + "\x0b\n"
	r := NewReader(strings.NewReader(raw))
	defer r.Close()

	f, err := r.Next()
	require.NoError(t, err)
	assert.Empty(t, f.Content)
}

func TestReader_ByteCountMismatchUsesFallbackScan(t *testing.T) {
	raw := "recv 10 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\n" +
		"abc" + "\x0b\n" +
		"recv 3 bytes from udp/10.0.0.1:5060 at 12:00:01.000000:\n" +
		"xyz" + "\x0b\n"
	r := NewReader(strings.NewReader(raw))
	defer r.Close()

	f1, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(f1.Content))
	assert.True(t, f1.ByteCountMismatch)

	f2, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(f2.Content))
}

func TestReader_IPv6Address(t *testing.T) {
	raw := "recv 2 bytes from tcp/[2001:db8::1]:5061 at 12:00:00.000000:\n" + "hi" + "\x0b\n"
	r := NewReader(strings.NewReader(raw))
	defer r.Close()

	f, err := r.Next()
	require.NoError(t, err)
	assert.True(t, f.Address.IsIPv6)
	assert.Equal(t, "2001:db8::1", f.Address.Host)
	assert.Equal(t, 5061, f.Address.Port)
}

func TestReader_MaxPayloadExceeded(t *testing.T) {
	raw := "recv 5 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\n" +
		strings.Repeat("z", 100)
	r := NewReader(strings.NewReader(raw), WithMaxPayloadSize(10))
	defer r.Close()

	_, err := r.Next()
	assert.True(t, errors.Is(err, ErrPayloadTooLarge))
}
