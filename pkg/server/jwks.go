package server

import (
	"crypto"
	"crypto/ecdsa"
	"fmt"

	"github.com/Layr-Labs/exchange-partner-go/pkg/util"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// NewPublicKeySet publishes pub as a single ES256 signing key whose kid is
// its RFC 7638 thumbprint.
func NewPublicKeySet(pub *ecdsa.PublicKey) (jwk.Set, error) {
	if pub == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}
	key, err := jwk.Import(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to import public key: %w", err)
	}

	thumbprint, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("failed to compute key thumbprint: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, util.EncodeTransportString(thumbprint)); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, err
	}

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, err
	}
	return set, nil
}
