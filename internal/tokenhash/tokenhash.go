package tokenhash

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
)

const (
	AlgorithmSHA256 = "sha256"
	AlgorithmSHA512 = "sha512"
)

func newHash(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA256:
		return sha256.New, nil
	case AlgorithmSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

// Hash computes the peppered HMAC digest of a bearer-token secret as a
// lowercase hex string. The pepper never leaves the server.
func Hash(secret string, algorithm string, pepper string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}

	mac := hmac.New(h, []byte(pepper))
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// LookupFunc finds a stored record by its hashed secret. The second return
// reports whether a record was found.
type LookupFunc[T any] func(ctx context.Context, hashedSecret string) (T, bool, error)

// FindBySecret hashes the raw secret with each configured pepper in order
// and returns the first record the lookup yields. New tokens always hash
// with peppers[0]; accepting the rest lets old peppers be retired without
// invalidating extant tokens.
func FindBySecret[T any](ctx context.Context, secret string, algorithm string, peppers []string, lookup LookupFunc[T]) (T, bool, error) {
	var zero T
	for _, pepper := range peppers {
		hashed, err := Hash(secret, algorithm, pepper)
		if err != nil {
			return zero, false, err
		}

		record, found, err := lookup(ctx, hashed)
		if err != nil {
			return zero, false, err
		}
		if found {
			return record, true, nil
		}
	}

	return zero, false, nil
}
