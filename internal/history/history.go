// Package history publishes per-game action records to Redis so finished
// games can be inspected or replayed by external tooling. Publishing is
// fire-and-forget: the game never waits on Redis and never fails because of it.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/halver/imposterbot/internal/game"
)

const (
	publishTimeout = 2 * time.Second
	recordTTL      = 24 * time.Hour
)

// Publisher appends action records to a per-game Redis list.
type Publisher struct {
	rdb *redis.Client
}

// New connects a publisher to the Redis instance at url.
func New(url string) (*Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Publisher{rdb: redis.NewClient(opts)}, nil
}

// Record queues one action record for publishing. Safe to call from the game
// loop; the Redis round trip happens on its own goroutine with a short
// timeout.
func (p *Publisher) Record(rec game.ActionRecord) {
	if p == nil || p.rdb == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		payload, err := json.Marshal(rec)
		if err != nil {
			logrus.WithError(err).Error("marshal action record")
			return
		}
		key := fmt.Sprintf("imposter:game:%s:actions", rec.GameID)
		pipe := p.rdb.Pipeline()
		pipe.RPush(ctx, key, payload)
		pipe.Expire(ctx, key, recordTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			logrus.WithError(err).WithField("game", rec.GameID).Warn("publish action record")
		}
	}()
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
