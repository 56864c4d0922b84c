// Package events publishes scoring events to Redis for the other JobMate
// services.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"jobmate/ghostjob-service/internal/model"
)

// ChannelBatchScored carries one message per finished scoring pass.
const ChannelBatchScored = "EVENT_GHOST_BATCH_SCORED"

// redisPublisher is the part of *redis.Client the publisher uses.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes batch summaries on ChannelBatchScored.
type RedisPublisher struct {
	rdb redisPublisher
}

// NewRedisPublisher returns a publisher over rdb (usually a *redis.Client).
func NewRedisPublisher(rdb redisPublisher) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// PublishSummary sends the summary of one pass.
func (p *RedisPublisher) PublishSummary(ctx context.Context, s model.BatchSummary) error {
	event, err := json.Marshal(map[string]any{
		"runId":            s.RunID,
		"total":            s.Total,
		"scored":           s.Scored,
		"rejected":         s.Rejected,
		"failed":           s.Failed,
		"ghostFlagged":     s.GhostFlagged,
		"rejectionReasons": s.RejectionReasons,
		"referenceTime":    s.ReferenceTime,
		"finishedAt":       s.FinishedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ChannelBatchScored, err)
	}
	if err := p.rdb.Publish(ctx, ChannelBatchScored, event).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ChannelBatchScored, err)
	}
	return nil
}
