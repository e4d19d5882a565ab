package tickers

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// ErrUnknownTicker is returned when no payin address is configured for a ticker
var ErrUnknownTicker = errors.New("no payinAddress found for ticker")

// Built-in test payin addresses
const (
	BTCTestPayinAddress = "bc1qh9qljpv0ltjceyeaz8mydp5zgaswgswhwt3jgl"
	ETHTestPayinAddress = "0xb761505466b080a9a7227e303BF93D6CbFd8d801"
)

// DefaultPayinAddresses returns a fresh copy of the built-in ticker table
func DefaultPayinAddresses() map[string]string {
	return map[string]string{
		"BTC": BTCTestPayinAddress,
		"ETH": ETHTestPayinAddress,
	}
}

// Resolver maps tickers to payin addresses. The table is copied at
// construction and never modified, so a Resolver is safe for concurrent use.
type Resolver struct {
	addresses map[string]string
}

// NewResolver validates and copies the given table
func NewResolver(table map[string]string) (*Resolver, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("payin address table is empty")
	}

	addresses := make(map[string]string, len(table))
	for ticker, address := range table {
		if strings.TrimSpace(ticker) == "" {
			return nil, fmt.Errorf("payin address table contains an empty ticker")
		}
		if strings.TrimSpace(address) == "" {
			return nil, fmt.Errorf("empty payin address for ticker '%s'", ticker)
		}
		if strings.HasPrefix(address, "0x") && !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid EVM payin address for ticker '%s': %s", ticker, address)
		}
		addresses[ticker] = address
	}

	return &Resolver{addresses: addresses}, nil
}

// DefaultResolver serves the built-in BTC/ETH table
func DefaultResolver() *Resolver {
	r, err := NewResolver(DefaultPayinAddresses())
	if err != nil {
		panic(err)
	}
	return r
}

// LoadResolver reads a ticker -> address mapping from a JSON or YAML file
func LoadResolver(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payin address table %s: %w", path, err)
	}

	table := make(map[string]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse payin address table %s: %w", path, err)
	}

	return NewResolver(table)
}

// Resolve returns the payin address for ticker. Matching is exact.
func (r *Resolver) Resolve(ticker string) (string, error) {
	address, ok := r.addresses[ticker]
	if !ok {
		return "", fmt.Errorf("%w '%s'", ErrUnknownTicker, ticker)
	}
	return address, nil
}

// Tickers returns the configured tickers in sorted order
func (r *Resolver) Tickers() []string {
	out := make([]string, 0, len(r.addresses))
	for ticker := range r.addresses {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}
