package exchange

import (
	"errors"
	"sync"
	"testing"

	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/Layr-Labs/exchange-partner-go/pkg/config"
	"github.com/Layr-Labs/exchange-partner-go/pkg/protocol"
	"github.com/Layr-Labs/exchange-partner-go/pkg/tickers"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner/inMemoryTransportSigner"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/Layr-Labs/exchange-partner-go/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAssembler(t *testing.T, format transportSigner.SignatureFormat) (*Assembler, *inMemoryTransportSigner.InMemoryTransportSigner) {
	t.Helper()
	signer, err := inMemoryTransportSigner.NewP256InMemoryTransportSigner(config.TestPrivateKey(), format, zap.NewNop())
	require.NoError(t, err)
	return NewAssembler(tickers.DefaultResolver(), signer, zap.NewNop()), signer
}

func fundRequest() types.ExchangeRequest {
	return types.ExchangeRequest{
		Kind:                types.ExchangeKindFund,
		DeviceTransactionID: "AAA",
		Amount:              amount.FromUint64(100000),
		Ticker:              "BTC",
	}
}

func Test_Assemble_Fund(t *testing.T) {
	a, signer := newTestAssembler(t, transportSigner.SignatureFormatDER)

	out, err := a.Assemble(fundRequest())
	require.NoError(t, err)

	assert.Equal(t, tickers.BTCTestPayinAddress, out.PayinAddress)
	assert.Equal(t, "100000", out.AmountExpectedFrom.String())
	assert.True(t, transportSigner.Verify(signer.PublicKey(), out.BinaryPayload, out.Signature, transportSigner.SignatureFormatDER))

	raw, err := util.DecodeTransport(out.BinaryPayload)
	require.NoError(t, err)
	expected, err := protocol.Marshal(&protocol.FundResponse{
		UserID:              "John Doe",
		AccountName:         "Card 1234",
		InCurrency:          "BTC",
		InAmount:            []byte{0x01, 0x86, 0xa0},
		InAddress:           tickers.BTCTestPayinAddress,
		DeviceTransactionID: []byte{0x00, 0x00},
	})
	require.NoError(t, err)
	assert.Equal(t, expected, raw)
}

func Test_Assemble_Sell(t *testing.T) {
	a, _ := newTestAssembler(t, transportSigner.SignatureFormatRaw)
	req := fundRequest()
	req.Kind = types.ExchangeKindSell
	req.Ticker = "ETH"

	out, err := a.Assemble(req)
	require.NoError(t, err)
	assert.Len(t, out.Signature, 64)
	assert.Equal(t, tickers.ETHTestPayinAddress, out.PayinAddress)

	raw, err := util.DecodeTransport(out.BinaryPayload)
	require.NoError(t, err)
	msg, err := protocol.Unmarshal(types.ExchangeKindSell, raw)
	require.NoError(t, err)
	sell := msg.(*protocol.SellResponse)
	assert.Equal(t, "test@test.com", sell.TraderEmail)
	assert.Equal(t, "EUR", sell.OutCurrency)
	assert.Equal(t, protocol.UDecimal{Coefficient: []byte{0x04, 0x01}, Exponent: 2}, sell.OutAmount)
}

func Test_Assemble_Errors(t *testing.T) {
	a, _ := newTestAssembler(t, transportSigner.SignatureFormatDER)

	t.Run("unknown ticker", func(t *testing.T) {
		req := fundRequest()
		req.Ticker = "XYZ"
		out, err := a.Assemble(req)
		require.ErrorIs(t, err, tickers.ErrUnknownTicker)
		assert.Nil(t, out)
	})

	t.Run("swap is unsupported", func(t *testing.T) {
		req := fundRequest()
		req.Kind = types.ExchangeKindSwap
		out, err := a.Assemble(req)
		require.ErrorIs(t, err, types.ErrUnsupportedExchangeKind)
		assert.Nil(t, out)
	})

	t.Run("bad transaction id", func(t *testing.T) {
		req := fundRequest()
		req.DeviceTransactionID = "not/base64url+"
		out, err := a.Assemble(req)
		require.ErrorIs(t, err, util.ErrInvalidTransportEncoding)
		assert.Nil(t, out)
	})
}

type failingSigner struct {
	transportSigner.ITransportSigner
}

func (failingSigner) SignMessage([]byte) ([]byte, error) {
	return nil, transportSigner.ErrInvalidKey
}

func Test_Assemble_SignerFailure(t *testing.T) {
	a := NewAssembler(tickers.DefaultResolver(), failingSigner{}, nil)
	out, err := a.Assemble(fundRequest())
	require.ErrorIs(t, err, transportSigner.ErrInvalidKey)
	assert.Nil(t, out)
}

func Test_Assemble_Concurrent(t *testing.T) {
	a, signer := newTestAssembler(t, transportSigner.SignatureFormatDER)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := a.Assemble(fundRequest())
			if err != nil {
				errs <- err
				return
			}
			if !transportSigner.Verify(signer.PublicKey(), out.BinaryPayload, out.Signature, transportSigner.SignatureFormatDER) {
				errs <- errors.New("signature did not verify")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func Test_Verifier(t *testing.T) {
	for _, format := range []transportSigner.SignatureFormat{transportSigner.SignatureFormatDER, transportSigner.SignatureFormatRaw} {
		t.Run(format.String(), func(t *testing.T) {
			a, signer := newTestAssembler(t, format)
			v := NewVerifier(signer.PublicKey(), format)

			out, err := a.Assemble(fundRequest())
			require.NoError(t, err)

			msg, err := v.Verify(types.ExchangeKindFund, out)
			require.NoError(t, err)
			fund := msg.(*protocol.FundResponse)
			assert.Equal(t, "John Doe", fund.UserID)
			assert.Equal(t, []byte{0x00, 0x00}, fund.DeviceTransactionID)
		})
	}
}

func Test_Verifier_Rejects(t *testing.T) {
	a, signer := newTestAssembler(t, transportSigner.SignatureFormatDER)
	v := NewVerifier(signer.PublicKey(), "")

	t.Run("tampered payload", func(t *testing.T) {
		out, err := a.Assemble(fundRequest())
		require.NoError(t, err)
		out.BinaryPayload[len(out.BinaryPayload)-1] ^= 0x01
		_, err = v.Verify(types.ExchangeKindFund, out)
		require.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("amount differs", func(t *testing.T) {
		out, err := a.Assemble(fundRequest())
		require.NoError(t, err)
		out.AmountExpectedFrom = amount.FromUint64(100001)
		_, err = v.Verify(types.ExchangeKindFund, out)
		require.ErrorIs(t, err, ErrPayloadMismatch)
	})

	t.Run("address differs", func(t *testing.T) {
		out, err := a.Assemble(fundRequest())
		require.NoError(t, err)
		out.PayinAddress = tickers.ETHTestPayinAddress
		_, err = v.Verify(types.ExchangeKindFund, out)
		require.ErrorIs(t, err, ErrPayloadMismatch)
	})

	t.Run("other key", func(t *testing.T) {
		out, err := a.Assemble(fundRequest())
		require.NoError(t, err)
		otherKey := config.TestPrivateKey()
		otherKey[31] ^= 0x01
		other, err := inMemoryTransportSigner.NewP256InMemoryTransportSigner(otherKey, "", zap.NewNop())
		require.NoError(t, err)
		_, err = NewVerifier(other.PublicKey(), "").Verify(types.ExchangeKindFund, out)
		require.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("nil payload", func(t *testing.T) {
		_, err := v.Verify(types.ExchangeKindFund, nil)
		require.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("wrong kind", func(t *testing.T) {
		out, err := a.Assemble(fundRequest())
		require.NoError(t, err)
		_, err = v.Verify(types.ExchangeKindSwap, out)
		require.ErrorIs(t, err, types.ErrUnsupportedExchangeKind)
	})
}
