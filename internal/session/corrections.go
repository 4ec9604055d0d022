package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// correctionsKey is the Redis set of document paths that have at least
// one saved version. The set is advisory: it is rebuilt from the
// version store on startup and only short-circuits UI hints.
const correctionsKey = "corrections:docs"

// CorrectionsCache tracks which documents carry saved corrections.
type CorrectionsCache struct {
	client *redis.Client
}

func NewCorrectionsCache(client *redis.Client) *CorrectionsCache {
	return &CorrectionsCache{client: client}
}

// Mark records that doc has at least one saved version.
func (c *CorrectionsCache) Mark(ctx context.Context, doc string) error {
	if err := c.client.SAdd(ctx, correctionsKey, doc).Err(); err != nil {
		return fmt.Errorf("mark corrected: %w", err)
	}
	return nil
}

// Has reports whether doc is known to carry corrections.
func (c *CorrectionsCache) Has(ctx context.Context, doc string) (bool, error) {
	ok, err := c.client.SIsMember(ctx, correctionsKey, doc).Result()
	if err != nil {
		return false, fmt.Errorf("check corrected: %w", err)
	}
	return ok, nil
}

// Repopulate replaces the set with the authoritative document list.
func (c *CorrectionsCache) Repopulate(ctx context.Context, docs []string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, correctionsKey)
	if len(docs) > 0 {
		members := make([]any, len(docs))
		for i, d := range docs {
			members[i] = d
		}
		pipe.SAdd(ctx, correctionsKey, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("repopulate corrections: %w", err)
	}
	return nil
}
