package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrUnsupportedExchangeKind is returned for exchange kinds the partner cannot answer
var ErrUnsupportedExchangeKind = errors.New("exchange kind not supported")

// ExchangeKind is the flow selected by the wallet when it starts an exchange.
// Values match the wallet protocol.
type ExchangeKind uint8

const (
	ExchangeKindSwap ExchangeKind = 0x00
	ExchangeKindSell ExchangeKind = 0x01
	ExchangeKindFund ExchangeKind = 0x02
)

var exchangeKindNames = map[ExchangeKind]string{
	ExchangeKindSwap: "SWAP",
	ExchangeKindSell: "SELL",
	ExchangeKindFund: "FUND",
}

func (k ExchangeKind) String() string {
	if name, ok := exchangeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(k))
}

// ParseExchangeKind accepts a kind name (case-insensitive) or its numeric value
// ("2", "0x02"). Unknown kinds fail with ErrUnsupportedExchangeKind.
func ParseExchangeKind(s string) (ExchangeKind, error) {
	s = strings.TrimSpace(s)
	for kind, name := range exchangeKindNames {
		if strings.EqualFold(s, name) {
			return kind, nil
		}
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err == nil {
		if _, ok := exchangeKindNames[ExchangeKind(v)]; ok {
			return ExchangeKind(v), nil
		}
	}
	return 0, fmt.Errorf("%w: '%s'", ErrUnsupportedExchangeKind, s)
}

func (k ExchangeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ExchangeKind) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseExchangeKind(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ExchangeRequest is what the wallet side hands the partner: which flow, the
// device nonce, how much and in which currency.
type ExchangeRequest struct {
	Kind                ExchangeKind  `json:"exchangeType"`
	DeviceTransactionID string        `json:"txId" validate:"required,max=512"`
	Amount              amount.Amount `json:"amount"`
	Ticker              string        `json:"ticker" validate:"required,alphanum,max=16"`
}

// SignedPayload is the artifact passed to the wallet's complete-exchange call.
// BinaryPayload holds the base64url-encoded protocol message, which is also
// the exact input the signature covers (after the "." prefix).
type SignedPayload struct {
	BinaryPayload      []byte `validate:"required,min=1"`
	Signature          []byte `validate:"required,min=1"`
	AmountExpectedFrom amount.Amount
	PayinAddress       string `validate:"required"`
}

// SignedPayloadFields is the JSON shape of a SignedPayload. It carries no
// methods so response types can embed it and stay flat.
type SignedPayloadFields struct {
	BinaryPayload      string        `json:"binaryPayload"`
	Signature          hexutil.Bytes `json:"signature"`
	AmountExpectedFrom amount.Amount `json:"amountExpectedFrom"`
	PayinAddress       string        `json:"payinAddress"`
}

// Fields converts the payload to its JSON shape
func (sp SignedPayload) Fields() SignedPayloadFields {
	return SignedPayloadFields{
		BinaryPayload:      string(sp.BinaryPayload),
		Signature:          sp.Signature,
		AmountExpectedFrom: sp.AmountExpectedFrom,
		PayinAddress:       sp.PayinAddress,
	}
}

// Payload converts the JSON shape back to a SignedPayload
func (f SignedPayloadFields) Payload() *SignedPayload {
	return &SignedPayload{
		BinaryPayload:      []byte(f.BinaryPayload),
		Signature:          f.Signature,
		AmountExpectedFrom: f.AmountExpectedFrom,
		PayinAddress:       f.PayinAddress,
	}
}

func (sp SignedPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(sp.Fields())
}

func (sp *SignedPayload) UnmarshalJSON(data []byte) error {
	var wire SignedPayloadFields
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*sp = *wire.Payload()
	return nil
}
