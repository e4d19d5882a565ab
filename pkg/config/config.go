package config

import (
	"fmt"
	"strings"

	"github.com/Layr-Labs/exchange-partner-go/pkg/transportSigner"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for exchange server configuration
const (
	EnvExchangePort            = "EXCHANGE_PORT"
	EnvExchangePayinTable      = "EXCHANGE_PAYIN_TABLE"
	EnvExchangeSignatureFormat = "EXCHANGE_SIGNATURE_FORMAT"
	EnvExchangePersistence     = "EXCHANGE_PERSISTENCE"
	EnvExchangeDataPath        = "EXCHANGE_DATA_PATH"
	EnvExchangeRedisAddress    = "EXCHANGE_REDIS_ADDRESS"
	EnvExchangeRedisPassword   = "EXCHANGE_REDIS_PASSWORD"
	EnvExchangeRedisDB         = "EXCHANGE_REDIS_DB"
	EnvExchangeRedisKeyPrefix  = "EXCHANGE_REDIS_KEY_PREFIX"
	EnvExchangeRateLimit       = "EXCHANGE_RATE_LIMIT"
	EnvExchangeRateBurst       = "EXCHANGE_RATE_BURST"
	EnvExchangeAllowedOrigins  = "EXCHANGE_ALLOWED_ORIGINS"
	EnvExchangeVerbose         = "EXCHANGE_VERBOSE"
)

const (
	DefaultPort           = 8080
	DefaultDataPath       = "./data/exchange"
	DefaultRedisAddress   = "localhost:6379"
	DefaultRedisKeyPrefix = "exchange:"
	DefaultRateLimit      = 20.0
	DefaultRateBurst      = 40
)

type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

func ParsePersistenceType(s string) (PersistenceType, error) {
	switch p := PersistenceType(strings.ToLower(strings.TrimSpace(s))); p {
	case PersistenceTypeMemory, PersistenceTypeBadger, PersistenceTypeRedis:
		return p, nil
	case "":
		return PersistenceTypeMemory, nil
	default:
		return "", fmt.Errorf("unsupported persistence type: %s", s)
	}
}

// testPrivateKey is the partner's fixed P-256 test key. It is public
// knowledge and must only be used against test devices.
var testPrivateKey = [32]byte{
	0x10, 0x67, 0xe5, 0xf6, 0xb3, 0x48, 0xea, 0xc2,
	0x68, 0xb6, 0x4f, 0xc9, 0xeb, 0x5a, 0x31, 0xa7,
	0xd7, 0x9e, 0x33, 0xdf, 0xd6, 0xfe, 0xf7, 0x6e,
	0xab, 0x9f, 0x49, 0x9b, 0x47, 0xee, 0xd6, 0x9d,
}

// TestPrivateKey returns a copy of the fixed partner signing key
func TestPrivateKey() []byte {
	out := make([]byte, len(testPrivateKey))
	copy(out, testPrivateKey[:])
	return out
}

// RedisConfig holds connection settings for the Redis record store
type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// ExchangeServerConfig represents the complete configuration for an exchange server
type ExchangeServerConfig struct {
	Port int `json:"port"`

	// PayinTablePath optionally replaces the built-in ticker table
	PayinTablePath  string                          `json:"payin_table_path"`
	SignatureFormat transportSigner.SignatureFormat `json:"signature_format"`

	Persistence PersistenceType `json:"persistence"`
	DataPath    string          `json:"data_path"`
	Redis       RedisConfig     `json:"redis"`

	RateLimit      float64  `json:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst      int      `json:"rate_burst"`
	AllowedOrigins []string `json:"allowed_origins"`

	Verbose bool `json:"verbose"`
}

func NewDefaultExchangeServerConfig() *ExchangeServerConfig {
	return &ExchangeServerConfig{
		Port:            DefaultPort,
		SignatureFormat: transportSigner.SignatureFormatDER,
		Persistence:     PersistenceTypeMemory,
		DataPath:        DefaultDataPath,
		Redis: RedisConfig{
			Address:   DefaultRedisAddress,
			KeyPrefix: DefaultRedisKeyPrefix,
		},
		RateLimit:      DefaultRateLimit,
		RateBurst:      DefaultRateBurst,
		AllowedOrigins: []string{"*"},
	}
}

// Validate validates the exchange server configuration
func (c *ExchangeServerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "port must be between 1-65535"))
	}
	if !c.SignatureFormat.IsValid() {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("signatureFormat"), c.SignatureFormat,
			[]string{transportSigner.SignatureFormatDER.String(), transportSigner.SignatureFormatRaw.String()}))
	}

	switch c.Persistence {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if c.DataPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if c.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redis", "address"), "address is required for redis persistence"))
		}
		if c.Redis.DB < 0 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redis", "db"), c.Redis.DB, "db must not be negative"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("persistence"), c.Persistence,
			[]string{PersistenceTypeMemory.String(), PersistenceTypeBadger.String(), PersistenceTypeRedis.String()}))
	}

	if c.RateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit"), c.RateLimit, "rateLimit must not be negative"))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateBurst"), c.RateBurst, "rateBurst must be at least 1 when rate limiting is enabled"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// ParseOrigins splits a comma separated origin list, dropping blanks
func ParseOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
