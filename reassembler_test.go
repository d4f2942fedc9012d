package sipdump

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipdump/sipdump/frame"
)

func TestReassembler_TCPFramesGroup(t *testing.T) {
	raw := "recv 4 bytes from tcp/10.0.0.1:5060 at 12:00:00.000000:\n" +
		"NOTI" + "\x0b\n" +
		"recv 2 bytes from tcp/10.0.0.1:5060 at 12:00:00.100000:\n" +
		"FY" + "\x0b\n"
	fr := frame.NewReader(strings.NewReader(raw))
	defer fr.Close()
	re := NewReassembler(fr)

	msg, err := re.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, msg.FrameCount)
	assert.Equal(t, "NOTIFY", string(msg.Content))

	_, err = re.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReassembler_UDPFramesNeverGroup(t *testing.T) {
	raw := "recv 2 bytes from udp/10.0.0.1:5060 at 12:00:00.000000:\n" +
		"hi" + "\x0b\n" +
		"recv 2 bytes from udp/10.0.0.1:5060 at 12:00:01.000000:\n" +
		"yo" + "\x0b\n"
	fr := frame.NewReader(strings.NewReader(raw))
	defer fr.Close()
	re := NewReassembler(fr)

	m1, err := re.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, m1.FrameCount)
	assert.Equal(t, "hi", string(m1.Content))

	m2, err := re.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, m2.FrameCount)
	assert.Equal(t, "yo", string(m2.Content))
}

func TestReassembler_DirectionSwitchBreaksGroup(t *testing.T) {
	raw := "recv 1 bytes from tcp/10.0.0.1:5060 at 12:00:00.000000:\n" + "a" + "\x0b\n" +
		"sent 1 bytes to tcp/10.0.0.1:5060 at 12:00:01.000000:\n" + "b" + "\x0b\n" +
		"recv 1 bytes from tcp/10.0.0.1:5060 at 12:00:02.000000:\n" + "c" + "\x0b\n"
	fr := frame.NewReader(strings.NewReader(raw))
	defer fr.Close()
	re := NewReassembler(fr)

	var got []string
	for {
		msg, err := re.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 1, msg.FrameCount)
		got = append(got, string(msg.Content))
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
