package client

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// NewJWKCache registers jwkUrl with a background-refreshing cache and
// returns the cached set after one synchronous fetch.
func NewJWKCache(ctx context.Context, jwkUrl string, refreshInterval time.Duration) (jwk.Set, error) {
	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create jwk cache: %w", err)
	}

	err = cache.Register(ctx, jwkUrl, jwk.WithConstantInterval(refreshInterval))
	if err != nil {
		return nil, fmt.Errorf("failed to register jwk location: %w", err)
	}

	// fetch once on startup
	_, err = cache.Refresh(ctx, jwkUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch on startup: %w", err)
	}

	return cache.CachedSet(jwkUrl)
}

// PublicKey extracts the partner's P-256 key from a set. An empty kid
// selects the only key of a single-key set.
func PublicKey(set jwk.Set, kid string) (*ecdsa.PublicKey, error) {
	if set == nil {
		return nil, fmt.Errorf("key set cannot be nil")
	}

	var (
		key jwk.Key
		ok  bool
	)
	if kid == "" {
		if set.Len() != 1 {
			return nil, fmt.Errorf("key set holds %d keys, a key id is required", set.Len())
		}
		key, ok = set.Key(0)
	} else {
		key, ok = set.LookupKeyID(kid)
	}
	if !ok {
		return nil, fmt.Errorf("key '%s' not found in set", kid)
	}

	var pub *ecdsa.PublicKey
	if err := jwk.Export(key, &pub); err != nil {
		return nil, fmt.Errorf("failed to export key: %w", err)
	}
	return pub, nil
}
