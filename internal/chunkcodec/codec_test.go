package chunkcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBase64_RoundTrip(t *testing.T) {
	c := Base64{}
	in := []byte{0x00, 0xff, 'a', 'b', 0x10}
	out, err := c.Decode(c.Encode(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestBase64_DecodeRejectsGarbage(t *testing.T) {
	c := Base64{}
	_, err := c.Decode("!!! not base64 !!!")
	require.Error(t, err)
}
