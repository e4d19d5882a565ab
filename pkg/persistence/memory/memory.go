package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence"
	"go.uber.org/zap"
)

// MemoryPersistence is an in-memory implementation of IExchangePersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Records are copied on the way in and out so callers cannot mutate stored state.
type MemoryPersistence struct {
	mu      sync.RWMutex
	records map[string]*persistence.ExchangeRecord
	closed  bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence(logger *zap.Logger) *MemoryPersistence {
	if logger != nil {
		logger.Sugar().Warnw("Using in-memory persistence - ALL RECORDS WILL BE LOST ON RESTART",
			"hint", "set EXCHANGE_PERSISTENCE=badger or redis to keep issued payloads")
	}

	return &MemoryPersistence{
		records: make(map[string]*persistence.ExchangeRecord),
	}
}

func (m *MemoryPersistence) SaveExchange(record *persistence.ExchangeRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	m.records[record.ID] = cloneRecord(record)
	return nil
}

func (m *MemoryPersistence) LoadExchange(id string) (*persistence.ExchangeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	record, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return cloneRecord(record), nil
}

func (m *MemoryPersistence) ListExchanges() ([]*persistence.ExchangeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	records := make([]*persistence.ExchangeRecord, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, cloneRecord(r))
	}
	persistence.SortExchanges(records)
	return records, nil
}

func (m *MemoryPersistence) DeleteExchange(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	delete(m.records, id)
	return nil
}

func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.records = nil
	return nil
}

func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("health check failed: %w", persistence.ErrClosed)
	}
	return nil
}

func cloneRecord(r *persistence.ExchangeRecord) *persistence.ExchangeRecord {
	out := *r
	out.Signature = append([]byte(nil), r.Signature...)
	return &out
}
