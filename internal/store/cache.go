package store

import (
	"context"

	"scrollsafe/internal/media"
)

// Cache stores verdicts keyed by (platform, videoID). Get returns (nil, nil)
// on a miss; a miss is a normal outcome.
type Cache interface {
	Get(ctx context.Context, platform, videoID string) (*media.Verdict, error)
	Set(ctx context.Context, platform, videoID string, verdict media.Verdict) error
	Close() error
}
