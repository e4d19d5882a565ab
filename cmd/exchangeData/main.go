package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/Layr-Labs/exchange-partner-go/pkg/client"
	"github.com/Layr-Labs/exchange-partner-go/pkg/config"
	"github.com/Layr-Labs/exchange-partner-go/pkg/exchange"
	"github.com/Layr-Labs/exchange-partner-go/pkg/logger"
	"github.com/Layr-Labs/exchange-partner-go/pkg/protocol"
	"github.com/Layr-Labs/exchange-partner-go/pkg/tickers"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner/inMemoryTransportSigner"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/Layr-Labs/exchange-partner-go/pkg/util"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	outputJSON   = "json"
	outputHex    = "hex"
	outputBase64 = "base64"
)

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	exchangeFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Value:   types.ExchangeKindFund.String(),
			Usage:   "Exchange type: FUND or SELL",
		},
		&cli.StringFlag{
			Name:     "tx-id",
			Usage:    "Device transaction id (base64url) returned by the wallet's start-exchange call",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "ticker",
			Usage:    "Currency ticker, e.g. BTC",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "amount",
			Usage: "Amount in the currency's smallest unit",
		},
		&cli.StringFlag{
			Name:  "amount-units",
			Usage: "Amount in whole currency units, converted with --magnitude",
		},
		&cli.IntFlag{
			Name:  "magnitude",
			Usage: "Decimal places of the currency, used with --amount-units",
			Value: 8,
		},
	}

	return &cli.App{
		Name:  "exchange-data",
		Usage: "Generate, verify and request signed exchange partner payloads",
		Description: `Offline companion to the exchange server.

generate  assembles and signs a payload locally with the partner test key
verify    replays the device-side checks on a payload
request   asks a running exchange server for a payload`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvExchangeVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Assemble and sign a payload with the partner test key",
				Flags: append(exchangeFlags,
					&cli.StringFlag{
						Name:    "payin-table",
						Usage:   "JSON or YAML file mapping tickers to payin addresses",
						EnvVars: []string{config.EnvExchangePayinTable},
					},
					&cli.StringFlag{
						Name:    "signature-format",
						Value:   transportSigner.SignatureFormatDER.String(),
						Usage:   "Signature encoding: der or raw",
						EnvVars: []string{config.EnvExchangeSignatureFormat},
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   outputJSON,
						Usage:   "Output format: json, hex or base64",
					},
				),
				Action: generateCommand,
			},
			{
				Name:      "verify",
				Usage:     "Verify a signed payload (JSON, read from --file or stdin)",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Value:   types.ExchangeKindFund.String(),
						Usage:   "Exchange type: FUND or SELL",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "File holding the payload JSON, stdin when empty",
					},
					&cli.StringFlag{
						Name:  "jwks-url",
						Usage: "Fetch the partner key from this JWKS endpoint instead of using the built-in test key",
					},
					&cli.StringFlag{
						Name:  "server-url",
						Usage: "Fetch the partner key from this exchange server's JWKS endpoint",
					},
					&cli.StringFlag{
						Name:  "kid",
						Usage: "Key id to select from the JWKS",
					},
					&cli.StringFlag{
						Name:    "signature-format",
						Value:   transportSigner.SignatureFormatDER.String(),
						Usage:   "Signature encoding: der or raw",
						EnvVars: []string{config.EnvExchangeSignatureFormat},
					},
				},
				Action: verifyCommand,
			},
			{
				Name:  "request",
				Usage: "Request a signed payload from a running exchange server",
				Flags: append(exchangeFlags,
					&cli.StringFlag{
						Name:  "server-url",
						Usage: "Exchange server base URL",
						Value: fmt.Sprintf("http://localhost:%d", config.DefaultPort),
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Overall request timeout",
						Value: 30 * time.Second,
					},
				),
				Action: requestCommand,
			},
		},
	}
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	return logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
}

func parseExchangeRequest(c *cli.Context) (types.ExchangeRequest, error) {
	kind, err := types.ParseExchangeKind(c.String("type"))
	if err != nil {
		return types.ExchangeRequest{}, err
	}

	var value amount.Amount
	switch {
	case c.IsSet("amount") && c.IsSet("amount-units"):
		return types.ExchangeRequest{}, fmt.Errorf("--amount and --amount-units are mutually exclusive")
	case c.IsSet("amount-units"):
		value, err = amount.ParseCurrencyUnit(c.String("amount-units"), int32(c.Int("magnitude")))
	case c.IsSet("amount"):
		value, err = amount.Parse(c.String("amount"))
	default:
		return types.ExchangeRequest{}, fmt.Errorf("one of --amount or --amount-units is required")
	}
	if err != nil {
		return types.ExchangeRequest{}, err
	}

	return types.ExchangeRequest{
		Kind:                kind,
		DeviceTransactionID: c.String("tx-id"),
		Amount:              value,
		Ticker:              c.String("ticker"),
	}, nil
}

func generateCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	req, err := parseExchangeRequest(c)
	if err != nil {
		return err
	}
	format, err := transportSigner.ParseSignatureFormat(c.String("signature-format"))
	if err != nil {
		return err
	}

	resolver := tickers.DefaultResolver()
	if path := c.String("payin-table"); path != "" {
		if resolver, err = tickers.LoadResolver(path); err != nil {
			return err
		}
	}

	signer, err := inMemoryTransportSigner.NewP256InMemoryTransportSigner(config.TestPrivateKey(), format, l)
	if err != nil {
		return err
	}

	payload, err := exchange.NewAssembler(resolver, signer, l).Assemble(req)
	if err != nil {
		return err
	}
	return writePayload(c.App.Writer, payload, c.String("output"))
}

// writePayload prints a payload in one of the supported output formats
func writePayload(w io.Writer, payload *types.SignedPayload, output string) error {
	switch output {
	case outputJSON:
		return writeJSON(w, payload)
	case outputHex:
		_, err := fmt.Fprintf(w, "binaryPayload: %s\nsignature: %s\n",
			hexutil.Encode(payload.BinaryPayload)[2:], hexutil.Encode(payload.Signature)[2:])
		return err
	case outputBase64:
		_, err := fmt.Fprintf(w, "binaryPayload: %s\nsignature: %s\n",
			payload.BinaryPayload, util.EncodeTransportString(payload.Signature))
		return err
	default:
		return fmt.Errorf("unsupported output format '%s'", output)
	}
}

func verifyCommand(c *cli.Context) error {
	kind, err := types.ParseExchangeKind(c.String("type"))
	if err != nil {
		return err
	}
	format, err := transportSigner.ParseSignatureFormat(c.String("signature-format"))
	if err != nil {
		return err
	}

	payload, err := readPayload(c)
	if err != nil {
		return err
	}

	pub, err := resolvePublicKey(c)
	if err != nil {
		return err
	}

	msg, err := exchange.NewVerifier(pub, format).Verify(kind, payload)
	if err != nil {
		_ = writeJSON(c.App.Writer, types.VerifyResponse{Valid: false, Error: err.Error()})
		return cli.Exit("", 1)
	}
	return writeJSON(c.App.Writer, types.VerifyResponse{Valid: true, Message: protocol.Describe(msg)})
}

func readPayload(c *cli.Context) (*types.SignedPayload, error) {
	var (
		data []byte
		err  error
	)
	if path := c.String("file"); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(c.App.Reader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	var payload types.SignedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse payload JSON: %w", err)
	}
	return &payload, nil
}

// resolvePublicKey picks the verification key: an explicit JWKS URL, the
// JWKS endpoint of --server-url, or the built-in test key.
func resolvePublicKey(c *cli.Context) (*ecdsa.PublicKey, error) {
	jwksURL := c.String("jwks-url")
	if jwksURL == "" && c.String("server-url") != "" {
		exchangeClient, err := client.NewClient(&client.ClientConfig{
			BaseURL: c.String("server-url"),
			Logger:  zap.NewNop(),
		})
		if err != nil {
			return nil, err
		}
		jwksURL = exchangeClient.JWKSURL()
	}

	if jwksURL == "" {
		signer, err := inMemoryTransportSigner.NewP256InMemoryTransportSigner(config.TestPrivateKey(), "", zap.NewNop())
		if err != nil {
			return nil, err
		}
		return signer.PublicKey(), nil
	}

	set, err := client.NewJWKCache(c.Context, jwksURL, time.Hour)
	if err != nil {
		return nil, err
	}
	return client.PublicKey(set, c.String("kid"))
}

func requestCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	req, err := parseExchangeRequest(c)
	if err != nil {
		return err
	}

	exchangeClient, err := client.NewClient(&client.ClientConfig{
		BaseURL: c.String("server-url"),
		Logger:  l,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	resp, err := exchangeClient.RequestExchange(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, resp)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
