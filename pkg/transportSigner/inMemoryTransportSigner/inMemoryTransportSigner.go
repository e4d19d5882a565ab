package inMemoryTransportSigner

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type InMemoryTransportSigner struct {
	logger     *zap.Logger
	privateKey *ecdsa.PrivateKey
	format     transportSigner.SignatureFormat
}

// NewP256InMemoryTransportSigner loads a 32-byte big-endian P-256 scalar.
func NewP256InMemoryTransportSigner(
	privateKey []byte,
	format transportSigner.SignatureFormat,
	logger *zap.Logger,
) (*InMemoryTransportSigner, error) {
	key, err := parseP256PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("error loading private key: %w", err)
	}
	if format == "" {
		format = transportSigner.SignatureFormatDER
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("unsupported signature format '%s'", format)
	}

	return NewInMemoryTransportSigner(key, format, logger), nil
}

func NewInMemoryTransportSigner(
	key *ecdsa.PrivateKey,
	format transportSigner.SignatureFormat,
	logger *zap.Logger,
) *InMemoryTransportSigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryTransportSigner{
		logger:     logger,
		privateKey: key,
		format:     format,
	}
}

func parseP256PrivateKey(raw []byte) (*ecdsa.PrivateKey, error) {
	if len(raw) != 32 {
		return nil, errors.Wrapf(transportSigner.ErrInvalidKey, "expected 32 bytes, got %d", len(raw))
	}
	// rejects zero and scalars >= the group order
	ecdhKey, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, errors.Wrapf(transportSigner.ErrInvalidKey, "%v", err)
	}
	point := ecdhKey.PublicKey().Bytes()
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(point[1:33]),
			Y:     new(big.Int).SetBytes(point[33:]),
		},
		D: new(big.Int).SetBytes(raw),
	}, nil
}

var (
	p256Order     = elliptic.P256().Params().N
	p256HalfOrder = new(big.Int).Rsh(p256Order, 1)
)

// SignMessage signs the transport-encoded payload. Signatures are always
// low-S (s <= n/2).
func (its *InMemoryTransportSigner) SignMessage(payload []byte) ([]byte, error) {
	digest := transportSigner.Digest(payload)
	der, err := ecdsa.SignASN1(rand.Reader, its.privateKey, digest[:])
	if err != nil {
		return nil, err
	}
	raw, err := transportSigner.DERToRaw(der)
	if err != nil {
		return nil, err
	}
	toLowS(raw)

	if its.format == transportSigner.SignatureFormatRaw {
		return raw, nil
	}
	return transportSigner.RawToDER(raw)
}

// toLowS replaces s with n-s in a raw r||s signature when s > n/2
func toLowS(raw []byte) {
	s := new(big.Int).SetBytes(raw[len(raw)/2:])
	if s.Cmp(p256HalfOrder) > 0 {
		s.Sub(p256Order, s)
		s.FillBytes(raw[len(raw)/2:])
	}
}

func (its *InMemoryTransportSigner) CreateAuthenticatedMessage(payload []byte) (*transportSigner.SignedMessage, error) {
	hash := transportSigner.Digest(payload)

	sigBytes, err := its.SignMessage(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign authenticated message: %w", err)
	}
	its.logger.Sugar().Debugw("Signed payload",
		"payloadLength", len(payload),
		"signatureFormat", its.format,
	)

	return &transportSigner.SignedMessage{
		Payload:   payload,
		Signature: sigBytes,
		Hash:      hash,
	}, nil
}

func (its *InMemoryTransportSigner) PublicKey() *ecdsa.PublicKey {
	pub := its.privateKey.PublicKey
	return &pub
}

func (its *InMemoryTransportSigner) SignatureFormat() transportSigner.SignatureFormat {
	return its.format
}
