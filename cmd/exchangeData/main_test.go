package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Layr-Labs/exchange-partner-go/pkg/config"
	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence/memory"
	"github.com/Layr-Labs/exchange-partner-go/pkg/server"
	"github.com/Layr-Labs/exchange-partner-go/pkg/tickers"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner/inMemoryTransportSigner"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runApp(t *testing.T, stdin []byte, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.Reader = bytes.NewReader(stdin)
	require.NoError(t, app.Run(append([]string{"exchange-data"}, args...)))
	return out.Bytes()
}

func newJWKSServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.NewDefaultExchangeServerConfig()
	signer, err := inMemoryTransportSigner.NewP256InMemoryTransportSigner(config.TestPrivateKey(), cfg.SignatureFormat, zap.NewNop())
	require.NoError(t, err)
	s, err := server.NewServer(cfg, tickers.DefaultResolver(), signer, memory.NewMemoryPersistence(nil), zap.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(s.GetHandler())
	t.Cleanup(ts.Close)
	return ts
}

func Test_GenerateAndVerify(t *testing.T) {
	generated := runApp(t, nil, "generate", "--type", "FUND", "--tx-id", "AAA", "--amount", "100000", "--ticker", "BTC")

	var payload types.SignedPayloadFields
	require.NoError(t, json.Unmarshal(generated, &payload))
	assert.Equal(t, tickers.BTCTestPayinAddress, payload.PayinAddress)
	assert.Equal(t, "100000", payload.AmountExpectedFrom.String())

	t.Run("built-in key", func(t *testing.T) {
		var resp types.VerifyResponse
		require.NoError(t, json.Unmarshal(runApp(t, generated, "verify", "--type", "FUND"), &resp))
		assert.True(t, resp.Valid, resp.Error)
		assert.Equal(t, "BTC", resp.Message["inCurrency"])
	})

	t.Run("server jwks", func(t *testing.T) {
		ts := newJWKSServer(t)

		var resp types.VerifyResponse
		require.NoError(t, json.Unmarshal(runApp(t, generated, "verify", "--type", "FUND", "--server-url", ts.URL), &resp))
		assert.True(t, resp.Valid, resp.Error)
	})
}

func Test_GenerateSellInCurrencyUnits(t *testing.T) {
	generated := runApp(t, nil, "generate", "--type", "SELL", "--tx-id", "AAA", "--amount-units", "0.001", "--magnitude", "8", "--ticker", "BTC")

	var payload types.SignedPayloadFields
	require.NoError(t, json.Unmarshal(generated, &payload))
	assert.Equal(t, "100000", payload.AmountExpectedFrom.String())

	var resp types.VerifyResponse
	require.NoError(t, json.Unmarshal(runApp(t, generated, "verify", "--type", "SELL"), &resp))
	require.True(t, resp.Valid, resp.Error)
	assert.Equal(t, "10.25", resp.Message["outAmount"])
	assert.Equal(t, "0x0186a0", resp.Message["inAmount"])
}

func Test_GenerateHexOutput(t *testing.T) {
	out := string(runApp(t, nil, "generate", "--tx-id", "AAA", "--amount", "1", "--ticker", "ETH", "--output", "hex"))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "binaryPayload: "))
	assert.True(t, strings.HasPrefix(lines[1], "signature: 30"), "DER signatures start with a SEQUENCE tag")
}

func Test_GenerateRejectsHugeExponent(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"exchange-data", "generate", "--tx-id", "AAA", "--amount", "1e10000000", "--ticker", "BTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflows")
}
