package protocol

import (
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the ledger_swap schema
const (
	udecimalCoefficient protowire.Number = 1
	udecimalExponent    protowire.Number = 2

	sellTraderEmail         protowire.Number = 1
	sellInCurrency          protowire.Number = 2
	sellInAmount            protowire.Number = 3
	sellInAddress           protowire.Number = 4
	sellOutCurrency         protowire.Number = 5
	sellOutAmount           protowire.Number = 6
	sellDeviceTransactionID protowire.Number = 7

	fundUserID              protowire.Number = 1
	fundAccountName         protowire.Number = 2
	fundInCurrency          protowire.Number = 3
	fundInAmount            protowire.Number = 4
	fundInAddress           protowire.Number = 5
	fundDeviceTransactionID protowire.Number = 6
)

// Marshal encodes m in canonical proto3 wire format: fields in ascending
// field-number order, scalar fields holding their zero value omitted, the
// out_amount sub-message always present. Equal messages always produce
// identical bytes.
func Marshal(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case *FundResponse:
		if msg == nil {
			return nil, errors.New("cannot serialize nil FundResponse")
		}
		return marshalFund(msg), nil
	case *SellResponse:
		if msg == nil {
			return nil, errors.New("cannot serialize nil SellResponse")
		}
		return marshalSell(msg), nil
	default:
		return nil, errors.Wrapf(types.ErrUnsupportedExchangeKind, "cannot serialize message of type %T", m)
	}
}

func marshalFund(m *FundResponse) []byte {
	var b []byte
	b = appendString(b, fundUserID, m.UserID)
	b = appendString(b, fundAccountName, m.AccountName)
	b = appendString(b, fundInCurrency, m.InCurrency)
	b = appendBytes(b, fundInAmount, m.InAmount)
	b = appendString(b, fundInAddress, m.InAddress)
	b = appendBytes(b, fundDeviceTransactionID, m.DeviceTransactionID)
	return b
}

func marshalSell(m *SellResponse) []byte {
	var b []byte
	b = appendString(b, sellTraderEmail, m.TraderEmail)
	b = appendString(b, sellInCurrency, m.InCurrency)
	b = appendBytes(b, sellInAmount, m.InAmount)
	b = appendString(b, sellInAddress, m.InAddress)
	b = appendString(b, sellOutCurrency, m.OutCurrency)
	b = appendMessage(b, sellOutAmount, marshalUDecimal(m.OutAmount))
	b = appendBytes(b, sellDeviceTransactionID, m.DeviceTransactionID)
	return b
}

func marshalUDecimal(d UDecimal) []byte {
	var b []byte
	b = appendBytes(b, udecimalCoefficient, d.Coefficient)
	b = appendUint32(b, udecimalExponent, d.Exponent)
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// sub-messages are emitted even when empty
func appendMessage(b []byte, num protowire.Number, encoded []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, encoded)
}
