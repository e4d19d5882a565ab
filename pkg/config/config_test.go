package config

import (
	"testing"

	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TestPrivateKey(t *testing.T) {
	key := TestPrivateKey()
	assert.Equal(t, "0x1067e5f6b348eac268b64fc9eb5a31a7d79e33dfd6fef76eab9f499b47eed69d", hexutil.Encode(key))

	key[0] = 0xff
	assert.Equal(t, byte(0x10), TestPrivateKey()[0], "callers get a copy")
}

func Test_ParsePersistenceType(t *testing.T) {
	for input, expected := range map[string]PersistenceType{
		"":        PersistenceTypeMemory,
		"memory":  PersistenceTypeMemory,
		"Badger":  PersistenceTypeBadger,
		" redis ": PersistenceTypeRedis,
	} {
		p, err := ParsePersistenceType(input)
		require.NoError(t, err)
		assert.Equal(t, expected, p)
	}

	_, err := ParsePersistenceType("postgres")
	require.Error(t, err)
}

func Test_ExchangeServerConfig_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, NewDefaultExchangeServerConfig().Validate())
	})

	tests := []struct {
		name     string
		mutate   func(c *ExchangeServerConfig)
		contains string
	}{
		{name: "port", mutate: func(c *ExchangeServerConfig) { c.Port = 0 }, contains: "port"},
		{name: "signature format", mutate: func(c *ExchangeServerConfig) { c.SignatureFormat = "jws" }, contains: "signatureFormat"},
		{name: "persistence", mutate: func(c *ExchangeServerConfig) { c.Persistence = "sqlite" }, contains: "persistence"},
		{name: "badger path", mutate: func(c *ExchangeServerConfig) {
			c.Persistence = PersistenceTypeBadger
			c.DataPath = ""
		}, contains: "dataPath"},
		{name: "redis address", mutate: func(c *ExchangeServerConfig) {
			c.Persistence = PersistenceTypeRedis
			c.Redis.Address = ""
		}, contains: "redis.address"},
		{name: "rate burst", mutate: func(c *ExchangeServerConfig) { c.RateBurst = 0 }, contains: "rateBurst"},
		{name: "rate limit", mutate: func(c *ExchangeServerConfig) { c.RateLimit = -1 }, contains: "rateLimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDefaultExchangeServerConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}

	t.Run("errors are aggregated", func(t *testing.T) {
		c := NewDefaultExchangeServerConfig()
		c.Port = -1
		c.SignatureFormat = transportSigner.SignatureFormat("x")
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port")
		assert.Contains(t, err.Error(), "signatureFormat")
	})

	t.Run("rate limiting disabled", func(t *testing.T) {
		c := NewDefaultExchangeServerConfig()
		c.RateLimit = 0
		c.RateBurst = 0
		require.NoError(t, c.Validate())
	})
}

func Test_ParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, ParseOrigins(" https://a.example, ,https://b.example "))
	assert.Nil(t, ParseOrigins(""))
}
