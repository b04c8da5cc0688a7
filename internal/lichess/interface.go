package lichess

import "context"

// Fetcher is the part of the explorer the collector depends on.
type Fetcher interface {
	Explore(ctx context.Context, req Request) (*Explorer, error)
}

var _ Fetcher = (*Client)(nil)
