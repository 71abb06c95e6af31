package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const blockTTL = 24 * time.Hour

// blockEntry is what the cache stores per hash: categories and counters
// only, never text.
type blockEntry struct {
	Categories []string  `json:"categories"`
	Count      int       `json:"count"`
	LastSeen   time.Time `json:"last_seen"`
}

// BlockCache keeps recent gatekeeper block hashes in Redis so repeat
// submissions of the same content can be correlated across instances.
type BlockCache struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewBlockCache(client *redis.Client, tracer trace.Tracer) *BlockCache {
	if client == nil {
		panic("compliance: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("kaiscribe.internal.compliance.blockcache")
	}
	return &BlockCache{redis: client, tracer: tracer}
}

// RememberBlock records a block for the given content hash, bumping the
// repeat counter when the hash was seen before. Satisfies the
// gatekeeper's cache hook.
func (c *BlockCache) RememberBlock(ctx context.Context, contentHash string, categories []string) error {
	ctx, span := c.tracer.Start(ctx, "compliance.remember_block")
	defer span.End()

	entry := blockEntry{Categories: categories, Count: 1, LastSeen: time.Now().UTC()}

	if data, err := c.redis.Get(ctx, blockKey(contentHash)).Bytes(); err == nil {
		var prev blockEntry
		if json.Unmarshal(data, &prev) == nil {
			entry.Count = prev.Count + 1
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("compliance: failed to marshal block entry: %w", err)
	}
	if err := c.redis.Set(ctx, blockKey(contentHash), data, blockTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("compliance: failed to persist block entry: %w", err)
	}
	return nil
}

// RepeatCount reports how many times the hash has been blocked within
// the retention window. Zero means never seen.
func (c *BlockCache) RepeatCount(ctx context.Context, contentHash string) (int, error) {
	ctx, span := c.tracer.Start(ctx, "compliance.block_repeat_count")
	defer span.End()

	data, err := c.redis.Get(ctx, blockKey(contentHash)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		span.RecordError(err)
		return 0, fmt.Errorf("compliance: failed to load block entry: %w", err)
	}

	var entry blockEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("compliance: failed to decode block entry: %w", err)
	}
	return entry.Count, nil
}

func blockKey(hash string) string {
	return fmt.Sprintf("phiblock:%s", hash)
}
