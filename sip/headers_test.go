package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadersGetCaseInsensitive(t *testing.T) {
	hs := Headers{
		{Name: "Content-Length", Value: "5"},
		{Name: "CALL-ID", Value: "abc"},
	}
	h, ok := hs.Get("call-id")
	assert.True(t, ok)
	assert.Equal(t, "abc", h.Value)
}

func TestHeadersContentLengthMissing(t *testing.T) {
	hs := Headers{{Name: "Via", Value: "SIP/2.0/UDP 1.1.1.1:5060"}}
	_, ok := hs.ContentLength()
	assert.False(t, ok)
}

func TestHeadersContentLengthCompactForm(t *testing.T) {
	hs := Headers{{Name: "l", Value: "12"}}
	n, ok := hs.ContentLength()
	assert.True(t, ok)
	assert.Equal(t, 12, n)
}

func TestHeadersCSeqInvalid(t *testing.T) {
	hs := Headers{{Name: "CSeq", Value: "notanumber INVITE"}}
	_, ok := hs.CSeq()
	assert.False(t, ok)
}
