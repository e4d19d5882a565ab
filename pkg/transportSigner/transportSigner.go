package transportSigner

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when key material is not a valid P-256 scalar
var ErrInvalidKey = errors.New("invalid signing key")

// SignatureFormat selects how ECDSA signatures are encoded on the wire.
type SignatureFormat string

const (
	// SignatureFormatDER is an ASN.1 DER SEQUENCE{r, s}; the default
	SignatureFormatDER SignatureFormat = "der"
	// SignatureFormatRaw is r||s, each left-padded to 32 bytes
	SignatureFormatRaw SignatureFormat = "raw"
)

func (f SignatureFormat) String() string {
	return string(f)
}

func (f SignatureFormat) IsValid() bool {
	return f == SignatureFormatDER || f == SignatureFormatRaw
}

// ParseSignatureFormat accepts "der" or "raw"; the empty string means DER.
func ParseSignatureFormat(s string) (SignatureFormat, error) {
	f := SignatureFormat(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return SignatureFormatDER, nil
	}
	if !f.IsValid() {
		return "", fmt.Errorf("unsupported signature format '%s'", s)
	}
	return f, nil
}

type SignedMessage struct {
	Payload   []byte   `json:"payload"`   // transport-encoded message bytes
	Hash      [32]byte `json:"hash"`      // sha256("." || payload)
	Signature []byte   `json:"signature"` // ECDSA P-256 signature over hash
}

type ITransportSigner interface {
	CreateAuthenticatedMessage(payload []byte) (*SignedMessage, error)
	SignMessage(payload []byte) ([]byte, error) // Sign transport-encoded payload, returns signature
	PublicKey() *ecdsa.PublicKey
	SignatureFormat() SignatureFormat
}

// SigningInput is the byte string that gets hashed: "." followed by the payload.
func SigningInput(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, '.')
	return append(out, payload...)
}

func Digest(payload []byte) [32]byte {
	return sha256.Sum256(SigningInput(payload))
}
