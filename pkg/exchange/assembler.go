package exchange

import (
	"fmt"

	"github.com/Layr-Labs/exchange-partner-go/pkg/protocol"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/Layr-Labs/exchange-partner-go/pkg/util"
	"go.uber.org/zap"
)

// PayinResolver maps a ticker to the partner's deposit address
type PayinResolver interface {
	Resolve(ticker string) (string, error)
}

// Assembler turns an exchange request into a signed payload ready for the
// wallet's complete-exchange call. It holds no mutable state and is safe for
// concurrent use.
type Assembler struct {
	resolver PayinResolver
	signer   transportSigner.ITransportSigner
	logger   *zap.Logger
}

func NewAssembler(resolver PayinResolver, signer transportSigner.ITransportSigner, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		resolver: resolver,
		signer:   signer,
		logger:   logger,
	}
}

// Assemble resolves the payin address, builds and serializes the response
// message, transport-encodes it and signs the encoded bytes. Any failure
// aborts the call and nothing partial is returned.
func (a *Assembler) Assemble(req types.ExchangeRequest) (*types.SignedPayload, error) {
	payinAddress, err := a.resolver.Resolve(req.Ticker)
	if err != nil {
		return nil, err
	}

	txID, err := util.DecodeDeviceTransactionID(req.DeviceTransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode device transaction id: %w", err)
	}

	msg, err := protocol.Build(req.Kind, protocol.Params{
		DeviceTransactionID: txID,
		Amount:              req.Amount,
		Ticker:              req.Ticker,
		PayinAddress:        payinAddress,
	})
	if err != nil {
		return nil, err
	}

	raw, err := protocol.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s message: %w", req.Kind, err)
	}
	binaryPayload := util.EncodeTransport(raw)

	signature, err := a.signer.SignMessage(binaryPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s payload: %w", req.Kind, err)
	}

	a.logger.Sugar().Debugw("Assembled exchange payload",
		"exchangeType", req.Kind,
		"ticker", req.Ticker,
		"amount", req.Amount.String(),
		"payloadLength", len(binaryPayload),
	)

	return &types.SignedPayload{
		BinaryPayload:      binaryPayload,
		Signature:          signature,
		AmountExpectedFrom: req.Amount,
		PayinAddress:       payinAddress,
	}, nil
}
