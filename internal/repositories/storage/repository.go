// Package storage provides the local persistent key/value store used for
// cached data sets, filter state and visitor preferences.
package storage

//go:generate mockgen -destination=mock/mock_repository.go -package=storagemock github.com/KirkDiggler/rpg-codex/internal/repositories/storage Repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

// Well-known keys
const (
	KeyCurrentFilters  = "currentFilters"
	KeyHasVisited      = "hasVisited"
	KeyPreferences     = "preferences"
	KeyLastDataRefresh = "lastDataRefresh"

	dataKeyPrefix = "data_"
	wikiKeyPrefix = "wiki_"
)

// DataKey returns the key holding the persisted records of a data type
func DataKey(t codex.DataType) string {
	return dataKeyPrefix + string(t)
}

// WikiKey returns the key holding extracted wiki records of a data type
func WikiKey(t codex.DataType) string {
	return wikiKeyPrefix + string(t)
}

// Repository defines the interface for local key/value persistence.
// Values are stored as JSON.
type Repository interface {
	// Get retrieves the raw JSON stored under a key
	// Returns errors.InvalidArgument for an empty key
	// Returns errors.NotFound if the key is absent or expired
	// Returns errors.Internal for storage failures
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// Set stores a JSON-encodable value, replacing any previous value.
	// A zero TTL keeps the value until deleted.
	// Returns errors.InvalidArgument for an empty key or unencodable value
	// Returns errors.Internal for storage failures
	Set(ctx context.Context, input SetInput) (*SetOutput, error)

	// Delete removes a key
	// Returns errors.InvalidArgument for an empty key
	// Returns errors.NotFound if the key is absent
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}

// GetInput defines the input for reading a key
type GetInput struct {
	Key string
}

// GetOutput defines the output for reading a key
type GetOutput struct {
	Key   string
	Value json.RawMessage
}

// Decode unmarshals the stored value into dst
func (o *GetOutput) Decode(dst any) error {
	if err := json.Unmarshal(o.Value, dst); err != nil {
		return errors.WrapWithCodef(err, errors.CodeDataLoss, "failed to decode value for %s", o.Key)
	}
	return nil
}

// SetInput defines the input for writing a key
type SetInput struct {
	Key   string
	Value any
	TTL   time.Duration
}

// SetOutput defines the output for writing a key
type SetOutput struct {
	Key string
}

// DeleteInput defines the input for deleting a key
type DeleteInput struct {
	Key string
}

// DeleteOutput defines the output for deleting a key
type DeleteOutput struct{}

// Load reads key into dst. It reports false with a nil error when the key is
// absent.
func Load(ctx context.Context, repo Repository, key string, dst any) (bool, error) {
	out, err := repo.Get(ctx, GetInput{Key: key})
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := out.Decode(dst); err != nil {
		return false, err
	}
	return true, nil
}

func encode(key string, value any) ([]byte, error) {
	if key == "" {
		return nil, errors.InvalidArgument(errKeyEmpty)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.WrapWithCodef(err, errors.CodeInvalidArgument, "failed to encode value for %s", key)
	}
	return data, nil
}

const errKeyEmpty = "key cannot be empty"
