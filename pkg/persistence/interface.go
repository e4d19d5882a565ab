package persistence

// IExchangePersistence stores the payloads the server has issued so they can
// be fetched again by id. All implementations must be thread-safe.
type IExchangePersistence interface {
	// SaveExchange persists a record under its ID, overwriting any existing record.
	SaveExchange(record *ExchangeRecord) error

	// LoadExchange retrieves a record by ID.
	// Returns nil if the record doesn't exist, error only on storage failure.
	LoadExchange(id string) (*ExchangeRecord, error)

	// ListExchanges returns all records sorted by creation time (ascending).
	// Returns empty slice if no records exist.
	ListExchanges() ([]*ExchangeRecord, error)

	// DeleteExchange removes a record.
	// Idempotent - returns nil if the record doesn't exist.
	DeleteExchange(id string) error

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return ErrClosed.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
