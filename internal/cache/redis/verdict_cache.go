package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/apurv101/openbet/internal/domain"
)

// DefaultVerdictTTL is the analysis freshness window: a cached verdict older
// than this is treated as missing and the pair is re-analyzed.
const DefaultVerdictTTL = 24 * time.Hour

// VerdictCache implements domain.VerdictCache using Redis string keys with
// JSON-serialized verdicts. Expiry is enforced by the key TTL, so a Get hit
// is by construction inside the freshness window.
//
// Key schema:
//
//	verdict:{pairKey} - JSON-serialized domain.Verdict
type VerdictCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewVerdictCache creates a VerdictCache backed by the given Client.
// ttl <= 0 uses DefaultVerdictTTL.
func NewVerdictCache(c *Client, ttl time.Duration) *VerdictCache {
	if ttl <= 0 {
		ttl = DefaultVerdictTTL
	}
	return &VerdictCache{rdb: c.Underlying(), ttl: ttl}
}

func verdictKey(pairKey string) string { return "verdict:" + pairKey }

// Get retrieves the cached verdict for a pair. It returns domain.ErrNotFound
// when no fresh verdict exists.
func (vc *VerdictCache) Get(ctx context.Context, pairKey string) (domain.Verdict, error) {
	data, err := vc.rdb.Get(ctx, verdictKey(pairKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Verdict{}, domain.ErrNotFound
		}
		return domain.Verdict{}, fmt.Errorf("redis: get verdict %s: %w", pairKey, err)
	}

	var v domain.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Verdict{}, fmt.Errorf("redis: unmarshal verdict %s: %w", pairKey, err)
	}
	return v, nil
}

// Set stores a verdict under its pair key for the freshness window.
func (vc *VerdictCache) Set(ctx context.Context, v domain.Verdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: marshal verdict %s: %w", v.PairKey, err)
	}

	if err := vc.rdb.Set(ctx, verdictKey(v.PairKey), data, vc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set verdict %s: %w", v.PairKey, err)
	}
	return nil
}

// Invalidate removes the cached verdict for a pair.
func (vc *VerdictCache) Invalidate(ctx context.Context, pairKey string) error {
	if err := vc.rdb.Del(ctx, verdictKey(pairKey)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate verdict %s: %w", pairKey, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.VerdictCache = (*VerdictCache)(nil)
