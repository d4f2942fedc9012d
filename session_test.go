package sipdump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipdump/sipdump/diag"
)

func TestDecode_StampsDiagnosticsWithSession(t *testing.T) {
	raw := "garbage\n" +
		"recv 2 bytes from udp/10.0.0.1:5060 at 00:00:00.000000:\n" + "hi" + "\x0b\n"

	var got diag.Diagnostic
	session := NewSession()
	p := Decode(strings.NewReader(raw),
		WithSession(session),
		WithSink(diag.SinkFunc(func(d diag.Diagnostic) { got = d })),
	)
	defer p.Close()

	_, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, session.String(), got.SessionID)
}

func TestNewSession_ProducesDistinctIDs(t *testing.T) {
	a, b := NewSession(), NewSession()
	assert.NotEqual(t, a.String(), b.String())
}
