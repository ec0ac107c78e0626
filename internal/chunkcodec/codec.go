// Package chunkcodec converts binary transfer chunks to and from the text
// form carried inside JSON messages.
package chunkcodec

import "encoding/base64"

// Codec encodes raw chunk bytes into a JSON-safe string and back.
type Codec interface {
	Encode(data []byte) string
	Decode(s string) ([]byte, error)
}

// Base64 is the standard codec used on the wire.
type Base64 struct{}

func (Base64) Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func (Base64) Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
