package persistence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("persistence layer is closed")

	// ErrNotFound is returned by GetExchange for unknown ids
	ErrNotFound = errors.New("exchange record not found")
)

// ExchangeRecord is a payload issued by the server together with the request
// that produced it.
type ExchangeRecord struct {
	ID                  string             `json:"id"`
	Kind                types.ExchangeKind `json:"exchangeType"`
	Ticker              string             `json:"ticker"`
	Amount              amount.Amount      `json:"amount"`
	DeviceTransactionID string             `json:"txId"`
	PayinAddress        string             `json:"payinAddress"`
	BinaryPayload       string             `json:"binaryPayload"`
	Signature           hexutil.Bytes      `json:"signature"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// NewExchangeRecord captures an assembled payload
func NewExchangeRecord(id string, req types.ExchangeRequest, payload *types.SignedPayload, createdAt time.Time) *ExchangeRecord {
	return &ExchangeRecord{
		ID:                  id,
		Kind:                req.Kind,
		Ticker:              req.Ticker,
		Amount:              payload.AmountExpectedFrom,
		DeviceTransactionID: req.DeviceTransactionID,
		PayinAddress:        payload.PayinAddress,
		BinaryPayload:       string(payload.BinaryPayload),
		Signature:           append(hexutil.Bytes{}, payload.Signature...),
		CreatedAt:           createdAt.UTC(),
	}
}

// Payload rebuilds the signed payload handed to the wallet
func (r *ExchangeRecord) Payload() *types.SignedPayload {
	return &types.SignedPayload{
		BinaryPayload:      []byte(r.BinaryPayload),
		Signature:          append([]byte{}, r.Signature...),
		AmountExpectedFrom: r.Amount,
		PayinAddress:       r.PayinAddress,
	}
}

func (r *ExchangeRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("cannot save nil ExchangeRecord")
	}
	if r.ID == "" {
		return fmt.Errorf("exchange record id cannot be empty")
	}
	return nil
}

// SortExchanges orders records by creation time, then ID
func SortExchanges(records []*ExchangeRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}

// GetExchange is LoadExchange with ErrNotFound for missing records
func GetExchange(p IExchangePersistence, id string) (*ExchangeRecord, error) {
	record, err := p.LoadExchange(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, id)
	}
	return record, nil
}
