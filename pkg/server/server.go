package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Layr-Labs/exchange-partner-go/pkg/config"
	"github.com/Layr-Labs/exchange-partner-go/pkg/exchange"
	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence"
	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

/*
Server exposes the partner simulator to a browser-based live app.

Endpoints:
  POST /exchange
    - Request: { exchangeType, txId, amount, ticker }
    - Assembles and signs the FUND or SELL payload, stores it
    - Response: { id, binaryPayload, signature, amountExpectedFrom, payinAddress }

  GET /exchange/{id}
    - Returns a previously issued payload, 404 if unknown

  DELETE /exchange/{id}
    - Forgets an issued payload; 204 even when the id is unknown

  GET /exchanges
    - Every issued payload, oldest first

  GET /tickers
    - Tickers with a configured payin address

  GET /.well-known/jwks.json
    - The partner public key as an ES256 JWK, for tools that verify payloads

  POST /verify
    - Request: { exchangeType, payload }
    - Replays the device-side checks and returns the decoded message

  GET /health
    - Persistence health check

Every route sits behind CORS and a token-bucket rate limiter.
*/

// TickerDirectory resolves payin addresses and lists the supported tickers
type TickerDirectory interface {
	exchange.PayinResolver
	Tickers() []string
}

const maxRequestBodyBytes = 1 << 20

type Server struct {
	assembler  *exchange.Assembler
	verifier   *exchange.Verifier
	tickers    TickerDirectory
	store      persistence.IExchangePersistence
	jwks       jwk.Set
	validate   *validator.Validate
	logger     *zap.Logger
	router     *mux.Router
	httpServer *http.Server
	now        func() time.Time
}

// NewServer wires the exchange pipeline behind the HTTP routes.
func NewServer(
	cfg *config.ExchangeServerConfig,
	tickers TickerDirectory,
	signer transportSigner.ITransportSigner,
	store persistence.IExchangePersistence,
	logger *zap.Logger,
) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	jwks, err := NewPublicKeySet(signer.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to build jwks: %w", err)
	}

	s := &Server{
		assembler: exchange.NewAssembler(tickers, signer, logger),
		verifier:  exchange.NewVerifier(signer.PublicKey(), signer.SignatureFormat()),
		tickers:   tickers,
		store:     store,
		jwks:      jwks,
		validate:  validator.New(),
		logger:    logger,
		router:    mux.NewRouter(),
		now:       time.Now,
	}
	s.setupRoutes(cfg)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.buildHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRoutes(cfg *config.ExchangeServerConfig) {
	s.router.Use(s.loggingMiddleware)
	if cfg.RateLimit > 0 {
		s.router.Use(newRateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))
	}

	s.router.HandleFunc("/exchange", s.handleCreateExchange).Methods(http.MethodPost)
	s.router.HandleFunc("/exchanges", s.handleListExchanges).Methods(http.MethodGet)
	s.router.HandleFunc("/exchange/{id}", s.handleGetExchange).Methods(http.MethodGet)
	s.router.HandleFunc("/exchange/{id}", s.handleDeleteExchange).Methods(http.MethodDelete)
	s.router.HandleFunc("/tickers", s.handleGetTickers).Methods(http.MethodGet)
	s.router.HandleFunc("/.well-known/jwks.json", s.handleGetJWKS).Methods(http.MethodGet)
	s.router.HandleFunc("/verify", s.handleVerify).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) buildHandler(cfg *config.ExchangeServerConfig) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "port", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
