package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Layr-Labs/exchange-partner-go/pkg/config"
	"github.com/Layr-Labs/exchange-partner-go/pkg/logger"
	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence"
	badgerPersistence "github.com/Layr-Labs/exchange-partner-go/pkg/persistence/badger"
	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence/memory"
	redisPersistence "github.com/Layr-Labs/exchange-partner-go/pkg/persistence/redis"
	"github.com/Layr-Labs/exchange-partner-go/pkg/server"
	"github.com/Layr-Labs/exchange-partner-go/pkg/tickers"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner/inMemoryTransportSigner"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// optional; real environment variables win over the file
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "exchange-server",
		Usage: "Ledger exchange partner test server",
		Description: `Issues signed FUND and SELL payloads for the wallet's complete-exchange call.

Payloads are signed with the partner's fixed P-256 test key and must only be
used against test devices.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   config.DefaultPort,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvExchangePort},
			},
			&cli.StringFlag{
				Name:    "payin-table",
				Usage:   "JSON or YAML file mapping tickers to payin addresses (defaults to the built-in BTC/ETH table)",
				EnvVars: []string{config.EnvExchangePayinTable},
			},
			&cli.StringFlag{
				Name:    "signature-format",
				Value:   transportSigner.SignatureFormatDER.String(),
				Usage:   "Signature encoding: der or raw",
				EnvVars: []string{config.EnvExchangeSignatureFormat},
			},
			&cli.StringFlag{
				Name:    "persistence",
				Value:   config.PersistenceTypeMemory.String(),
				Usage:   "Record store: memory, badger or redis",
				EnvVars: []string{config.EnvExchangePersistence},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Value:   config.DefaultDataPath,
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvExchangeDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Value:   config.DefaultRedisAddress,
				Usage:   "Redis server address (host:port)",
				EnvVars: []string{config.EnvExchangeRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvExchangeRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvExchangeRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Value:   config.DefaultRedisKeyPrefix,
				Usage:   "Prefix for every Redis key",
				EnvVars: []string{config.EnvExchangeRedisKeyPrefix},
			},
			&cli.Float64Flag{
				Name:    "rate-limit",
				Value:   config.DefaultRateLimit,
				Usage:   "Requests per second across all callers, 0 disables limiting",
				EnvVars: []string{config.EnvExchangeRateLimit},
			},
			&cli.IntFlag{
				Name:    "rate-burst",
				Value:   config.DefaultRateBurst,
				Usage:   "Rate limiter burst size",
				EnvVars: []string{config.EnvExchangeRateBurst},
			},
			&cli.StringFlag{
				Name:    "allowed-origins",
				Value:   "*",
				Usage:   "Comma separated CORS origins",
				EnvVars: []string{config.EnvExchangeAllowedOrigins},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvExchangeVerbose},
			},
		},
		Action: runExchangeServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runExchangeServer(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	cfg, err := parseExchangeConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	resolver := tickers.DefaultResolver()
	if cfg.PayinTablePath != "" {
		if resolver, err = tickers.LoadResolver(cfg.PayinTablePath); err != nil {
			return err
		}
	}

	signer, err := inMemoryTransportSigner.NewP256InMemoryTransportSigner(config.TestPrivateKey(), cfg.SignatureFormat, l)
	if err != nil {
		return fmt.Errorf("failed to create transport signer: %w", err)
	}

	store, err := newPersistence(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to create persistence: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Sugar().Warnw("Failed to close persistence", "error", err)
		}
	}()

	srv, err := server.NewServer(cfg, resolver, signer, store, l)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.Verbose {
		l.Sugar().Infow("Exchange Server Configuration",
			"port", cfg.Port,
			"tickers", resolver.Tickers(),
			"signature_format", cfg.SignatureFormat,
			"persistence", cfg.Persistence,
			"rate_limit", cfg.RateLimit,
			"allowed_origins", cfg.AllowedOrigins)
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	l.Sugar().Infow("Exchange Server running", "port", cfg.Port)
	l.Sugar().Infow("Available endpoints",
		"exchange", "POST /exchange, GET /exchange/{id}",
		"verify", "POST /verify",
		"tickers", "GET /tickers",
		"jwks", "GET /.well-known/jwks.json")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	l.Sugar().Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(ctx)
}

func parseExchangeConfig(c *cli.Context) (*config.ExchangeServerConfig, error) {
	format, err := transportSigner.ParseSignatureFormat(c.String("signature-format"))
	if err != nil {
		return nil, err
	}
	persistenceType, err := config.ParsePersistenceType(c.String("persistence"))
	if err != nil {
		return nil, err
	}

	return &config.ExchangeServerConfig{
		Port:            c.Int("port"),
		PayinTablePath:  c.String("payin-table"),
		SignatureFormat: format,
		Persistence:     persistenceType,
		DataPath:        c.String("data-path"),
		Redis: config.RedisConfig{
			Address:   c.String("redis-address"),
			Password:  c.String("redis-password"),
			DB:        c.Int("redis-db"),
			KeyPrefix: c.String("redis-key-prefix"),
		},
		RateLimit:      c.Float64("rate-limit"),
		RateBurst:      c.Int("rate-burst"),
		AllowedOrigins: config.ParseOrigins(c.String("allowed-origins")),
		Verbose:        c.Bool("verbose"),
	}, nil
}

func newPersistence(cfg *config.ExchangeServerConfig, l *zap.Logger) (persistence.IExchangePersistence, error) {
	switch cfg.Persistence {
	case config.PersistenceTypeBadger:
		return badgerPersistence.NewBadgerPersistence(cfg.DataPath, l)
	case config.PersistenceTypeRedis:
		return redisPersistence.NewRedisPersistence(&redisPersistence.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, l)
	default:
		return memory.NewMemoryPersistence(l), nil
	}
}
