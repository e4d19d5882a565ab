// Package persistencetest holds the behavior every IExchangePersistence
// backend must share.
package persistencetest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/exchange-partner-go/pkg/amount"
	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence"
	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty backend
type Factory func(t *testing.T) persistence.IExchangePersistence

// NewRecord builds a record with a random id created at the given time
func NewRecord(createdAt time.Time) *persistence.ExchangeRecord {
	return &persistence.ExchangeRecord{
		ID:                  uuid.NewString(),
		Kind:                types.ExchangeKindSell,
		Ticker:              "ETH",
		Amount:              amount.FromUint64(42),
		DeviceTransactionID: "AAA",
		PayinAddress:        "0xb761505466b080a9a7227e303BF93D6CbFd8d801",
		BinaryPayload:       "Cg10ZXN0QHRlc3QuY29t",
		Signature:           []byte{0x01, 0x02, 0x03},
		CreatedAt:           createdAt.UTC(),
	}
}

// RunContractTests exercises a backend against the IExchangePersistence contract.
func RunContractTests(t *testing.T, newBackend Factory) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		record := NewRecord(time.Now())
		require.NoError(t, p.SaveExchange(record))

		loaded, err := p.LoadExchange(record.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, record.ID, loaded.ID)
		assert.Equal(t, record.Kind, loaded.Kind)
		assert.True(t, record.Amount.Equal(loaded.Amount))
		assert.Equal(t, record.Signature, loaded.Signature)
		assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("LoadMissing", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		loaded, err := p.LoadExchange(uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, loaded)

		_, err = persistence.GetExchange(p, "missing")
		require.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("SaveRejectsInvalid", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		require.Error(t, p.SaveExchange(nil))
		require.Error(t, p.SaveExchange(&persistence.ExchangeRecord{}))
	})

	t.Run("Overwrite", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		record := NewRecord(time.Now())
		require.NoError(t, p.SaveExchange(record))
		record.Ticker = "BTC"
		require.NoError(t, p.SaveExchange(record))

		loaded, err := p.LoadExchange(record.ID)
		require.NoError(t, err)
		assert.Equal(t, "BTC", loaded.Ticker)

		all, err := p.ListExchanges()
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ListSortedByCreation", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		empty, err := p.ListExchanges()
		require.NoError(t, err)
		assert.Empty(t, empty)

		base := time.Now()
		third := NewRecord(base.Add(2 * time.Second))
		first := NewRecord(base)
		second := NewRecord(base.Add(time.Second))
		for _, r := range []*persistence.ExchangeRecord{third, first, second} {
			require.NoError(t, p.SaveExchange(r))
		}

		all, err := p.ListExchanges()
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, first.ID, all[0].ID)
		assert.Equal(t, second.ID, all[1].ID)
		assert.Equal(t, third.ID, all[2].ID)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		record := NewRecord(time.Now())
		require.NoError(t, p.SaveExchange(record))
		require.NoError(t, p.DeleteExchange(record.ID))
		require.NoError(t, p.DeleteExchange(record.ID))

		loaded, err := p.LoadExchange(record.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		all, err := p.ListExchanges()
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("HealthCheck", func(t *testing.T) {
		p := newBackend(t)
		require.NoError(t, p.HealthCheck())
		require.NoError(t, p.Close())
		require.Error(t, p.HealthCheck())
	})

	t.Run("OperationsAfterClose", func(t *testing.T) {
		p := newBackend(t)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close(), "Close is idempotent")

		require.ErrorIs(t, p.SaveExchange(NewRecord(time.Now())), persistence.ErrClosed)
		_, err := p.LoadExchange("x")
		require.ErrorIs(t, err, persistence.ErrClosed)
		_, err = p.ListExchanges()
		require.ErrorIs(t, err, persistence.ErrClosed)
		require.ErrorIs(t, p.DeleteExchange("x"), persistence.ErrClosed)
		require.ErrorIs(t, p.HealthCheck(), persistence.ErrClosed)
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		const workers = 10
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r := NewRecord(time.Now().Add(time.Duration(i) * time.Millisecond))
				if err := p.SaveExchange(r); err != nil {
					errs <- err
					return
				}
				loaded, err := p.LoadExchange(r.ID)
				if err != nil {
					errs <- err
					return
				}
				if loaded == nil {
					errs <- fmt.Errorf("record %s not found after save", r.ID)
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := p.ListExchanges()
		require.NoError(t, err)
		assert.Len(t, all, workers)
	})
}
