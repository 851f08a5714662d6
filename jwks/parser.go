package jwks

import (
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Skip reasons reported in SkippedKey.
const (
	SkipReasonEncryptionKey = "encryption_key"
	SkipReasonNotSigningAlg = "not_signing_alg"
)

// ParseOptions tune ParseKeys.
type ParseOptions struct {
	// ExplicitAlg, when set, overrides the alg published with each key.
	ExplicitAlg string
}

// SkippedKey describes a JWK entry that was left out of the KeySet without
// failing the batch.
type SkippedKey struct {
	KeyID     string
	Algorithm string
	Reason    string
}

// ParseKeys converts raw JWK entries into a KeySet.
//
// Entries published for encryption ("use": "enc") and entries whose
// algorithm the verification stack does not support are skipped and
// reported. A missing or non-string kid, a missing or non-string algorithm,
// or key parameters that cannot produce a verification key abort the whole
// batch: no KeySet is returned and the caller keeps the previous one.
//
// An empty KeySet is a valid result.
func ParseKeys(raw []json.RawMessage, opts ParseOptions) (*KeySet, []SkippedKey, error) {
	signers := make(map[string]*Signer, len(raw))
	var skipped []SkippedKey

	for i, entry := range raw {
		var fields map[string]any
		if err := json.Unmarshal(entry, &fields); err != nil {
			return nil, nil, newError(ErrInvalidKeyParams, fmt.Errorf("key at index %d: %w", i, err))
		}

		if use, _ := fields["use"].(string); use == "enc" {
			kid, _ := fields["kid"].(string)
			skipped = append(skipped, SkippedKey{KeyID: kid, Reason: SkipReasonEncryptionKey})
			continue
		}

		kid, ok := fields["kid"].(string)
		if !ok {
			return nil, nil, newError(ErrKidNotBinary, fmt.Errorf("key at index %d has kid %v", i, fields["kid"]))
		}

		alg, err := resolveAlgorithm(fields, opts.ExplicitAlg)
		if err != nil {
			return nil, nil, err
		}

		if !SupportedAlgorithm(alg) {
			skipped = append(skipped, SkippedKey{KeyID: kid, Algorithm: alg, Reason: SkipReasonNotSigningAlg})
			continue
		}

		key, err := jwk.ParseKey(entry)
		if err != nil {
			return nil, nil, newError(ErrInvalidKeyParams, fmt.Errorf("kid %q: %w", kid, err))
		}

		signer, err := newSigner(kid, alg, key)
		if err != nil {
			return nil, nil, newError(ErrInvalidKeyParams, fmt.Errorf("kid %q: %w", kid, err))
		}

		signers[kid] = signer
	}

	return newKeySet(signers), skipped, nil
}

func resolveAlgorithm(fields map[string]any, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	v, present := fields["alg"]
	if !present || v == nil {
		return "", ErrNoAlgorithmSupplied
	}

	alg, ok := v.(string)
	if !ok {
		return "", newError(ErrBadAlgorithm, fmt.Errorf("alg %v is not a string", v))
	}
	if alg == "" {
		return "", ErrNoAlgorithmSupplied
	}
	return alg, nil
}
