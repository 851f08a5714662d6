package jwks

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"sort"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Signer is a ready-to-use verification key for one (kid, algorithm) pair.
// Signers are created by ParseKeys and never mutated afterwards.
type Signer struct {
	// KeyID is the kid the key was published under.
	KeyID string

	// Algorithm is the resolved JWS algorithm, e.g. "RS256".
	Algorithm string

	// JWK is the key material as published by the provider.
	JWK jwk.Key

	// Key is the verification handle: *rsa.PublicKey, *ecdsa.PublicKey,
	// ed25519.PublicKey or []byte, depending on Algorithm. It can be
	// returned as-is from a jwt.Keyfunc.
	Key any
}

// KeySet is an immutable kid → Signer mapping produced by one successful
// fetch-and-parse cycle.
type KeySet struct {
	signers map[string]*Signer
}

func newKeySet(signers map[string]*Signer) *KeySet {
	if signers == nil {
		signers = map[string]*Signer{}
	}
	return &KeySet{signers: signers}
}

// Lookup returns the signer published under kid.
func (k *KeySet) Lookup(kid string) (*Signer, bool) {
	if k == nil {
		return nil, false
	}
	s, ok := k.signers[kid]
	return s, ok
}

// Len returns the number of signers in the set.
func (k *KeySet) Len() int {
	if k == nil {
		return 0
	}
	return len(k.signers)
}

// KeyIDs returns the kids of the set in lexical order.
func (k *KeySet) KeyIDs() []string {
	if k == nil {
		return nil
	}
	ids := make([]string, 0, len(k.signers))
	for kid := range k.signers {
		ids = append(ids, kid)
	}
	sort.Strings(ids)
	return ids
}

// SupportedAlgorithm reports whether the token verification stack can
// verify signatures made with alg. The unsecured "none" algorithm is never
// supported.
func SupportedAlgorithm(alg string) bool {
	if alg == "" || alg == jwt.SigningMethodNone.Alg() {
		return false
	}
	return jwt.GetSigningMethod(alg) != nil
}

// newSigner builds a Signer from a parsed JWK. The key type must be able to
// verify alg.
func newSigner(kid, alg string, key jwk.Key) (*Signer, error) {
	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, fmt.Errorf("could not derive public key: %w", err)
	}

	var raw any
	if err := pub.Raw(&raw); err != nil {
		return nil, fmt.Errorf("could not export raw key: %w", err)
	}

	if err := checkKeyForAlgorithm(alg, raw); err != nil {
		return nil, err
	}

	return &Signer{
		KeyID:     kid,
		Algorithm: alg,
		JWK:       pub,
		Key:       raw,
	}, nil
}

func checkKeyForAlgorithm(alg string, raw any) error {
	var ok bool
	switch jwt.GetSigningMethod(alg).(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		_, ok = raw.(*rsa.PublicKey)
	case *jwt.SigningMethodECDSA:
		_, ok = raw.(*ecdsa.PublicKey)
	case *jwt.SigningMethodEd25519:
		_, ok = raw.(ed25519.PublicKey)
	case *jwt.SigningMethodHMAC:
		var b []byte
		b, ok = raw.([]byte)
		ok = ok && len(b) > 0
	}
	if !ok {
		return fmt.Errorf("key of type %T cannot verify %s signatures", raw, alg)
	}
	return nil
}
