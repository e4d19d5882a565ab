package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/Layr-Labs/exchange-partner-go/pkg/exchange"
	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence"
	"github.com/Layr-Labs/exchange-partner-go/pkg/protocol"
	"github.com/Layr-Labs/exchange-partner-go/pkg/tickers"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/Layr-Labs/exchange-partner-go/pkg/util"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// handleCreateExchange assembles, signs and stores a payload
func (s *Server) handleCreateExchange(w http.ResponseWriter, r *http.Request) {
	var req types.ExchangeRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	payload, err := s.assembler.Assemble(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	record := persistence.NewExchangeRecord(uuid.NewString(), req, payload, s.now())
	if err := s.store.SaveExchange(record); err != nil {
		s.logger.Sugar().Errorw("Failed to store exchange record", "id", record.ID, "error", err)
		s.writeError(w, err)
		return
	}

	s.logger.Sugar().Infow("Issued exchange payload",
		"id", record.ID,
		"exchangeType", req.Kind,
		"ticker", req.Ticker,
	)

	writeJSON(w, http.StatusCreated, types.ExchangeResponse{
		ID:                  record.ID,
		SignedPayloadFields: payload.Fields(),
	})
}

// handleGetExchange returns a stored record
func (s *Server) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := persistence.GetExchange(s.store, id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordResponse(record))
}

// handleListExchanges returns every stored record, oldest first
func (s *Server) handleListExchanges(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListExchanges()
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := types.ExchangeListResponse{Exchanges: make([]types.ExchangeRecordResponse, 0, len(records))}
	for _, record := range records {
		resp.Exchanges = append(resp.Exchanges, recordResponse(record))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteExchange forgets a record. Unknown ids are not an error.
func (s *Server) handleDeleteExchange(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteExchange(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Sugar().Infow("Deleted exchange record", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func recordResponse(record *persistence.ExchangeRecord) types.ExchangeRecordResponse {
	return types.ExchangeRecordResponse{
		ID:                  record.ID,
		Kind:                record.Kind,
		Ticker:              record.Ticker,
		DeviceTransactionID: record.DeviceTransactionID,
		CreatedAt:           record.CreatedAt,
		SignedPayloadFields: record.Payload().Fields(),
	}
}

func (s *Server) handleGetTickers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.TickersResponse{Tickers: s.tickers.Tickers()})
}

func (s *Server) handleGetJWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, s.jwks)
}

// handleVerify replays the device-side checks. A payload that fails them is
// reported in the body with valid=false; only malformed requests are 4xx.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req types.VerifyRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	msg, err := s.verifier.Verify(req.Kind, &req.Payload)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, types.VerifyResponse{Valid: true, Message: protocol.Describe(msg)})
	case errors.Is(err, types.ErrUnsupportedExchangeKind):
		s.writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, types.VerifyResponse{Valid: false, Error: err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		s.logger.Sugar().Warnw("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, types.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeRequest parses and validates a JSON body, writing a 400 on failure.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: fmt.Sprintf("failed to parse request: %v", err)})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// statusForError maps error kinds to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, tickers.ErrUnknownTicker),
		errors.Is(err, types.ErrUnsupportedExchangeKind),
		errors.Is(err, amount.ErrAmountOverflow),
		errors.Is(err, amount.ErrNegativeAmount),
		errors.Is(err, amount.ErrInvalidAmount),
		errors.Is(err, util.ErrInvalidTransportEncoding),
		errors.Is(err, protocol.ErrMalformedMessage),
		errors.Is(err, exchange.ErrSignatureMismatch),
		errors.Is(err, exchange.ErrPayloadMismatch):
		return http.StatusBadRequest
	case errors.Is(err, persistence.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, persistence.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Sugar().Errorw("Request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
