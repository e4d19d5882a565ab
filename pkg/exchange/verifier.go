package exchange

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/Layr-Labs/exchange-partner-go/pkg/protocol"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/Layr-Labs/exchange-partner-go/pkg/util"
)

var (
	// ErrSignatureMismatch is returned when the signature does not cover the payload
	ErrSignatureMismatch = errors.New("signature does not match payload")

	// ErrPayloadMismatch is returned when the signed message disagrees with
	// the amount or payin address presented alongside it
	ErrPayloadMismatch = errors.New("payload does not match exchange details")
)

// Verifier replays the checks the device performs before accepting a payload.
type Verifier struct {
	publicKey *ecdsa.PublicKey
	format    transportSigner.SignatureFormat
}

func NewVerifier(publicKey *ecdsa.PublicKey, format transportSigner.SignatureFormat) *Verifier {
	if format == "" {
		format = transportSigner.SignatureFormatDER
	}
	return &Verifier{publicKey: publicKey, format: format}
}

// Verify checks the signature over the transport-encoded payload, decodes the
// message with the protocol schema and cross-checks in_amount and in_address.
func (v *Verifier) Verify(kind types.ExchangeKind, payload *types.SignedPayload) (protocol.Message, error) {
	if kind != types.ExchangeKindFund && kind != types.ExchangeKindSell {
		return nil, fmt.Errorf("%w: cannot verify exchangeType '%s'", types.ErrUnsupportedExchangeKind, kind)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrSignatureMismatch)
	}
	if !transportSigner.Verify(v.publicKey, payload.BinaryPayload, payload.Signature, v.format) {
		return nil, ErrSignatureMismatch
	}

	raw, err := util.DecodeTransport(payload.BinaryPayload)
	if err != nil {
		return nil, err
	}
	msg, err := protocol.Unmarshal(kind, raw)
	if err != nil {
		return nil, err
	}

	var inAmount []byte
	var inAddress string
	switch m := msg.(type) {
	case *protocol.FundResponse:
		inAmount, inAddress = m.InAmount, m.InAddress
	case *protocol.SellResponse:
		inAmount, inAddress = m.InAmount, m.InAddress
	}

	if !bytes.Equal(inAmount, amount.ToMinimalBigEndian(payload.AmountExpectedFrom)) {
		return nil, fmt.Errorf("%w: in_amount differs from amountExpectedFrom %s", ErrPayloadMismatch, payload.AmountExpectedFrom)
	}
	if inAddress != payload.PayinAddress {
		return nil, fmt.Errorf("%w: in_address '%s' differs from payinAddress '%s'", ErrPayloadMismatch, inAddress, payload.PayinAddress)
	}
	return msg, nil
}
