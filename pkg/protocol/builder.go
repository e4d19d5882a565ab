package protocol

import (
	"fmt"

	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
)

// Fixed test identities carried by every generated response.
const (
	FundUserID      = "John Doe"
	FundAccountName = "Card 1234"
	SellTraderEmail = "test@test.com"
	SellOutCurrency = "EUR"
)

// SellOutAmount is the fiat amount every sell response quotes (10.25),
// whatever the crypto amount sold.
var SellOutAmount = amount.MustParseDecimal("10.25")

// Params are the per-request inputs shared by both response kinds
type Params struct {
	DeviceTransactionID []byte
	Amount              amount.Amount
	Ticker              string
	PayinAddress        string
}

func BuildFund(p Params) *FundResponse {
	return &FundResponse{
		UserID:              FundUserID,
		AccountName:         FundAccountName,
		InCurrency:          p.Ticker,
		InAmount:            amount.ToMinimalBigEndian(p.Amount),
		InAddress:           p.PayinAddress,
		DeviceTransactionID: cloneBytes(p.DeviceTransactionID),
	}
}

func BuildSell(p Params) *SellResponse {
	return &SellResponse{
		TraderEmail:         SellTraderEmail,
		InCurrency:          p.Ticker,
		InAmount:            amount.ToMinimalBigEndian(p.Amount),
		InAddress:           p.PayinAddress,
		OutCurrency:         SellOutCurrency,
		OutAmount:           UDecimalFrom(SellOutAmount),
		DeviceTransactionID: cloneBytes(p.DeviceTransactionID),
	}
}

// Build dispatches on kind. Only FUND and SELL have a response message.
func Build(kind types.ExchangeKind, p Params) (Message, error) {
	switch kind {
	case types.ExchangeKindFund:
		return BuildFund(p), nil
	case types.ExchangeKindSell:
		return BuildSell(p), nil
	default:
		return nil, fmt.Errorf("%w: test data for exchangeType '%s'", types.ErrUnsupportedExchangeKind, kind)
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
