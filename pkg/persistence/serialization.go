package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalExchangeRecord serializes an ExchangeRecord to JSON bytes.
func MarshalExchangeRecord(record *ExchangeRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("cannot marshal nil ExchangeRecord")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ExchangeRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalExchangeRecord deserializes an ExchangeRecord from JSON bytes.
func UnmarshalExchangeRecord(data []byte) (*ExchangeRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var record ExchangeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to ExchangeRecord: %w", err)
	}

	return &record, nil
}
