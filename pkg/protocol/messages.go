package protocol

import (
	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
)

/*
Partner response messages, package ledger_swap (proto3):

	message UDecimal {
	  bytes  coefficient = 1;
	  uint32 exponent    = 2;
	}

	message NewSellResponse {
	  string   trader_email          = 1;
	  string   in_currency           = 2;
	  bytes    in_amount             = 3;
	  string   in_address            = 4;
	  string   out_currency          = 5;
	  UDecimal out_amount            = 6;
	  bytes    device_transaction_id = 7;
	}

	message NewFundResponse {
	  string user_id               = 1;
	  string account_name          = 2;
	  string in_currency           = 3;
	  bytes  in_amount             = 4;
	  string in_address            = 5;
	  bytes  device_transaction_id = 6;
	}

Amounts are unsigned big-endian integers with no leading zero byte.
*/

// Message is one of *FundResponse or *SellResponse
type Message interface {
	Kind() types.ExchangeKind
	isExchangeMessage()
}

// UDecimal is Coefficient × 10^-Exponent with a big-endian coefficient
type UDecimal struct {
	Coefficient []byte
	Exponent    uint32
}

// UDecimalFrom converts a decimal amount to its wire form
func UDecimalFrom(d amount.Decimal) UDecimal {
	return UDecimal{Coefficient: d.MantissaBytes(), Exponent: d.Scale}
}

// Decimal converts the wire form back to a decimal amount
func (u UDecimal) Decimal() (amount.Decimal, error) {
	mantissa, err := amount.FromBigEndian(u.Coefficient)
	if err != nil {
		return amount.Decimal{}, err
	}
	return amount.Decimal{Mantissa: mantissa, Scale: u.Exponent}, nil
}

type FundResponse struct {
	UserID              string
	AccountName         string
	InCurrency          string
	InAmount            []byte
	InAddress           string
	DeviceTransactionID []byte
}

func (*FundResponse) Kind() types.ExchangeKind { return types.ExchangeKindFund }
func (*FundResponse) isExchangeMessage()       {}

type SellResponse struct {
	TraderEmail         string
	InCurrency          string
	InAmount            []byte
	InAddress           string
	OutCurrency         string
	OutAmount           UDecimal
	DeviceTransactionID []byte
}

func (*SellResponse) Kind() types.ExchangeKind { return types.ExchangeKindSell }
func (*SellResponse) isExchangeMessage()       {}
