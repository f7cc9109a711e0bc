// Package cache provides the read-through result cache for scoring, mining,
// and recommendation calls: a process-local TTL map for single-node
// deployments and a Redis-backed implementation for shared ones.
//
// Values are stored as JSON.  Errors are never cached; a failed computation
// leaves the key absent so the next caller retries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropsight/dropsight/pkg/errors"
)

// Cache is the storage contract.  Writes are last-writer-wins on a key; a
// brief stale-while-refresh race between workers is acceptable.
type Cache interface {
	// Get unmarshals the cached value for key into dest and reports whether
	// the key was present and unexpired.  A miss is (false, nil).
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key for ttl.  A non-positive ttl falls back to
	// the implementation default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes key.  Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// DefaultTTL is the expiry applied when callers pass a non-positive ttl.
const DefaultTTL = 24 * time.Hour

// Fingerprint derives the stable cache key for an operation and its
// normalized input.  encoding/json sorts map keys, so any two structurally
// equal inputs fingerprint identically.
func Fingerprint(operation string, input any) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization,
			fmt.Sprintf("cannot fingerprint input for operation %q", operation))
	}
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0x1f})
	h.Write(payload)
	return operation + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

func marshalValue(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "cannot serialize cache value")
	}
	return data, nil
}

func unmarshalValue(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cannot deserialize cache value")
	}
	return nil
}
