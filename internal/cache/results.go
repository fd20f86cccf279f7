package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bocado/internal/platform/logger"
	"bocado/pkg/types"
)

// Results is a read-through cache for final recommendation lists. Every
// operation is best-effort: a cache failure degrades to a recompute, never to
// a request failure.
type Results struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewResults(client *redis.Client, ttl time.Duration, log *logger.Logger) *Results {
	return &Results{client: client, ttl: ttl, log: log}
}

// Key identifies one cached list. Alpha and the hybrid flag are part of the
// key because they change the training scores, not just the presentation.
func Key(userID string, alpha float64, hybrid bool, topN int) string {
	return fmt.Sprintf("reco:%s:a=%.3f:h=%t:n=%d", userID, alpha, hybrid, topN)
}

func (r *Results) Get(ctx context.Context, key string) ([]types.Recommendation, bool) {
	if r == nil || r.client == nil {
		return nil, false
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("recommendation cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var recs []types.Recommendation
	if err := json.Unmarshal(raw, &recs); err != nil {
		r.log.Warn("recommendation cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return recs, true
}

func (r *Results) Set(ctx context.Context, key string, recs []types.Recommendation) {
	if r == nil || r.client == nil {
		return
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.log.Warn("recommendation cache write failed", "key", key, "error", err)
	}
}
