package types

import (
	"encoding/json"
	"testing"

	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExchangeKind(t *testing.T) {
	tests := []struct {
		input    string
		expected ExchangeKind
	}{
		{input: "FUND", expected: ExchangeKindFund},
		{input: "fund", expected: ExchangeKindFund},
		{input: "SELL", expected: ExchangeKindSell},
		{input: "SWAP", expected: ExchangeKindSwap},
		{input: "0x02", expected: ExchangeKindFund},
		{input: "1", expected: ExchangeKindSell},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseExchangeKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}

	for _, bad := range []string{"", "BUY", "0x07", "300"} {
		_, err := ParseExchangeKind(bad)
		require.ErrorIs(t, err, ErrUnsupportedExchangeKind, "input %q", bad)
	}
}

func TestExchangeKind_String(t *testing.T) {
	assert.Equal(t, "FUND", ExchangeKindFund.String())
	assert.Equal(t, "UNKNOWN(0x09)", ExchangeKind(9).String())
}

func TestExchangeRequest_JSON(t *testing.T) {
	var req ExchangeRequest
	err := json.Unmarshal([]byte(`{"exchangeType": 2, "txId": "AAA", "amount": 100000, "ticker": "BTC"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, ExchangeKindFund, req.Kind)
	assert.Equal(t, "100000", req.Amount.String())

	err = json.Unmarshal([]byte(`{"exchangeType": "SELL", "txId": "AAA", "amount": "7", "ticker": "ETH"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, ExchangeKindSell, req.Kind)

	err = json.Unmarshal([]byte(`{"exchangeType": "BUY"}`), &req)
	require.ErrorIs(t, err, ErrUnsupportedExchangeKind)
}

func TestSignedPayload_JSON(t *testing.T) {
	sp := SignedPayload{
		BinaryPayload:      []byte("CghKb2huIERvZQ"),
		Signature:          []byte{0x30, 0x45, 0x02},
		AmountExpectedFrom: amount.FromUint64(100000),
		PayinAddress:       "bc1qh9qljpv0ltjceyeaz8mydp5zgaswgswhwt3jgl",
	}

	data, err := json.Marshal(sp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"binaryPayload": "CghKb2huIERvZQ",
		"signature": "0x304502",
		"amountExpectedFrom": 100000,
		"payinAddress": "bc1qh9qljpv0ltjceyeaz8mydp5zgaswgswhwt3jgl"
	}`, string(data))

	var back SignedPayload
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, sp.BinaryPayload, back.BinaryPayload)
	assert.Equal(t, sp.Signature, back.Signature)
	assert.True(t, sp.AmountExpectedFrom.Equal(back.AmountExpectedFrom))
	assert.Equal(t, sp.PayinAddress, back.PayinAddress)
}

func TestExchangeResponse_FlatJSON(t *testing.T) {
	sp := SignedPayload{
		BinaryPayload:      []byte("abc"),
		Signature:          []byte{0x01},
		AmountExpectedFrom: amount.FromUint64(5),
		PayinAddress:       "addr",
	}
	resp := ExchangeResponse{ID: "id-1", SignedPayloadFields: sp.Fields()}

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"id-1","binaryPayload":"abc","signature":"0x01","amountExpectedFrom":5,"payinAddress":"addr"}`, string(data))

	var back ExchangeResponse
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "id-1", back.ID)
	assert.Equal(t, sp.BinaryPayload, back.Payload().BinaryPayload)
}
