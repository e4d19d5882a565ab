package memory

import (
	"testing"
	"time"

	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence"
	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryPersistence_Contract(t *testing.T) {
	persistencetest.RunContractTests(t, func(t *testing.T) persistence.IExchangePersistence {
		return NewMemoryPersistence(zap.NewNop())
	})
}

func TestMemoryPersistence_CopiesRecords(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	record := persistencetest.NewRecord(time.Now())
	require.NoError(t, mp.SaveExchange(record))

	record.Signature[0] = 0xff
	record.Ticker = "BTC"

	loaded, err := mp.LoadExchange(record.ID)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), loaded.Signature[0])
	assert.Equal(t, "ETH", loaded.Ticker)

	loaded.Signature[1] = 0xff
	again, err := mp.LoadExchange(record.ID)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), again.Signature[1])
}
