package transportSigner

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// p256ScalarSize is the byte width of r and s in raw signatures
const p256ScalarSize = 32

// DERToRaw converts a DER signature to fixed-width r||s.
func DERToRaw(sig []byte) ([]byte, error) {
	r, s, err := parseDER(sig)
	if err != nil {
		return nil, err
	}
	if len(r.Bytes()) > p256ScalarSize || len(s.Bytes()) > p256ScalarSize {
		return nil, fmt.Errorf("signature component wider than %d bytes", p256ScalarSize)
	}
	out := make([]byte, 2*p256ScalarSize)
	r.FillBytes(out[:p256ScalarSize])
	s.FillBytes(out[p256ScalarSize:])
	return out, nil
}

// RawToDER converts fixed-width r||s to DER.
func RawToDER(sig []byte) ([]byte, error) {
	if len(sig) != 2*p256ScalarSize {
		return nil, fmt.Errorf("raw signature must be %d bytes, got %d", 2*p256ScalarSize, len(sig))
	}
	r := new(big.Int).SetBytes(sig[:p256ScalarSize])
	s := new(big.Int).SetBytes(sig[p256ScalarSize:])

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	return b.Bytes()
}

func parseDER(sig []byte) (*big.Int, *big.Int, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(sig)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, nil, fmt.Errorf("malformed DER signature")
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return nil, nil, fmt.Errorf("signature components must be positive")
	}
	return r, s, nil
}

// VerifyDigest checks sig over digest in the given format.
func VerifyDigest(pub *ecdsa.PublicKey, digest [32]byte, sig []byte, format SignatureFormat) bool {
	if pub == nil {
		return false
	}
	der := sig
	if format == SignatureFormatRaw {
		var err error
		if der, err = RawToDER(sig); err != nil {
			return false
		}
	} else if format != SignatureFormatDER {
		return false
	}
	return ecdsa.VerifyASN1(pub, digest[:], der)
}

// Verify is VerifyDigest over the digest of a transport-encoded payload.
func Verify(pub *ecdsa.PublicKey, payload []byte, sig []byte, format SignatureFormat) bool {
	return VerifyDigest(pub, Digest(payload), sig, format)
}
