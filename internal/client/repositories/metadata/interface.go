package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyLastFilter = "discovery.last_filter"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Clear removes every stored preference.
	Clear(ctx context.Context) error
}
