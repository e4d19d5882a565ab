package util

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransportEncoding is returned when input is not unpadded base64url
var ErrInvalidTransportEncoding = errors.New("invalid base64url transport encoding")

var transportEncoding = base64.RawURLEncoding.Strict()

// EncodeTransport base64url-encodes data without padding.
// The result is the exact byte string that gets signed.
func EncodeTransport(data []byte) []byte {
	out := make([]byte, transportEncoding.EncodedLen(len(data)))
	transportEncoding.Encode(out, data)
	return out
}

// EncodeTransportString is EncodeTransport returning a string
func EncodeTransportString(data []byte) string {
	return transportEncoding.EncodeToString(data)
}

// DecodeTransport is the inverse of EncodeTransport
func DecodeTransport(encoded []byte) ([]byte, error) {
	// the stdlib decoder skips CR/LF even in strict mode
	if bytes.ContainsAny(encoded, "\r\n") {
		return nil, fmt.Errorf("%w: line breaks are not allowed", ErrInvalidTransportEncoding)
	}
	out := make([]byte, transportEncoding.DecodedLen(len(encoded)))
	n, err := transportEncoding.Decode(out, encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransportEncoding, err)
	}
	return out[:n], nil
}

// DecodeDeviceTransactionID decodes the nonce handed out by the wallet when
// an exchange is started. Wallets sometimes keep trailing '=' padding, so it
// is stripped before strict decoding.
func DecodeDeviceTransactionID(txID string) ([]byte, error) {
	trimmed := strings.TrimRight(txID, "=")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty device transaction id", ErrInvalidTransportEncoding)
	}
	return DecodeTransport([]byte(trimmed))
}
