package ticker

import (
	"context"
)

// Repository defines the interface for ticker reference data
type Repository interface {
	// GetProfiles returns profiles keyed by symbol; unknown symbols are omitted
	GetProfiles(ctx context.Context, symbols []string) (map[string]Profile, error)

	// GetMapping returns errors.ErrNotFound when the ticker has no benchmark mapping
	GetMapping(ctx context.Context, symbol string) (*Mapping, error)

	// ListBenchmarks returns every distinct sector and market benchmark in use
	ListBenchmarks(ctx context.Context) ([]string, error)
}
