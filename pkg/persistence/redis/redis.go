package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/exchange-partner-go/pkg/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key names, relative to the configured prefix
const (
	keyPrefixExchange    = "record:"
	keySetExchanges      = "records:index" // Redis doesn't support prefix iteration natively
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	defaultKeyPrefix = "exchange:"
	defaultTimeout   = 5 * time.Second
)

// RedisPersistence is an IExchangePersistence backed by Redis, for
// deployments that run several server replicas.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	timeout   time.Duration
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix namespaces every key; defaults to "exchange:"
	KeyPrefix string
	// Timeout bounds each operation; defaults to 5s
	Timeout time.Duration
}

// NewRedisPersistence connects to Redis and initializes the schema version.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
		timeout:   cfg.Timeout,
	}
	if rp.keyPrefix == "" {
		rp.keyPrefix = defaultKeyPrefix
	}
	if rp.timeout <= 0 {
		rp.timeout = defaultTimeout
	}

	ctx, cancel := rp.opContext()
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", rp.keyPrefix)

	return rp, nil
}

func (r *RedisPersistence) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisPersistence) exchangeKey(id string) string {
	return r.prefixKey(keyPrefixExchange + id)
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

// SaveExchange persists an exchange record and indexes its id
func (r *RedisPersistence) SaveExchange(record *persistence.ExchangeRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalExchangeRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ExchangeRecord: %w", err)
	}

	ctx, cancel := r.opContext()
	defer cancel()

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.exchangeKey(record.ID), data, 0)
		pipe.SAdd(ctx, r.prefixKey(keySetExchanges), record.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save ExchangeRecord: %w", err)
	}
	return nil
}

// LoadExchange retrieves an exchange record
func (r *RedisPersistence) LoadExchange(id string) (*persistence.ExchangeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	data, err := r.client.Get(ctx, r.exchangeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ExchangeRecord: %w", err)
	}

	record, err := persistence.UnmarshalExchangeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ExchangeRecord: %w", err)
	}
	return record, nil
}

// ListExchanges returns all exchange records sorted by creation time
func (r *RedisPersistence) ListExchanges() ([]*persistence.ExchangeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	indexKey := r.prefixKey(keySetExchanges)
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ExchangeRecord ids: %w", err)
	}

	records := []*persistence.ExchangeRecord{}
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.exchangeKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ExchangeRecords: %w", err)
	}

	for i, val := range values {
		if val == nil {
			// in the index but gone; drop the stale id
			r.client.SRem(ctx, indexKey, ids[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for ExchangeRecord", "key", keys[i])
			continue
		}

		record, err := persistence.UnmarshalExchangeRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal ExchangeRecord, skipping",
				"key", keys[i], "error", err)
			continue
		}
		records = append(records, record)
	}

	persistence.SortExchanges(records)
	return records, nil
}

// DeleteExchange removes an exchange record and its index entry
func (r *RedisPersistence) DeleteExchange(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.exchangeKey(id))
		pipe.SRem(ctx, r.prefixKey(keySetExchanges), id)
		return nil
	})
	return err
}

// Close shuts down the Redis client
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck pings Redis and checks the schema version key
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := r.opContext()
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}
