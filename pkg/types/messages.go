package types

import "time"

// ExchangeResponse is returned by POST /exchange
type ExchangeResponse struct {
	ID string `json:"id"`
	SignedPayloadFields
}

// ExchangeRecordResponse is returned by GET /exchange/{id}
type ExchangeRecordResponse struct {
	ID                  string       `json:"id"`
	Kind                ExchangeKind `json:"exchangeType"`
	Ticker              string       `json:"ticker"`
	DeviceTransactionID string       `json:"txId"`
	CreatedAt           time.Time    `json:"createdAt"`
	SignedPayloadFields
}

// ExchangeListResponse is returned by GET /exchanges
type ExchangeListResponse struct {
	Exchanges []ExchangeRecordResponse `json:"exchanges"`
}

// VerifyRequest asks the partner to replay the device-side checks on a payload
type VerifyRequest struct {
	Kind    ExchangeKind  `json:"exchangeType"`
	Payload SignedPayload `json:"payload"`
}

// VerifyResponse reports the decoded message fields of a valid payload
type VerifyResponse struct {
	Valid   bool              `json:"valid"`
	Error   string            `json:"error,omitempty"`
	Message map[string]string `json:"message,omitempty"`
}

// TickersResponse lists the tickers with a configured payin address
type TickersResponse struct {
	Tickers []string `json:"tickers"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}
