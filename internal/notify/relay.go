package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisRelay fans student-count updates out to every API instance through a Redis pub/sub
// channel. Each instance runs Run to forward what it receives into its local group.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   *Group
	logger  *slog.Logger

	// subscribed is true while Run holds a confirmed subscription
	subscribed atomic.Bool
	retryMin   time.Duration
	retryMax   time.Duration
}

func NewRedisRelay(client *redis.Client, channel string, local *Group, logger *slog.Logger) *RedisRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRelay{
		client:   client,
		channel:  channel,
		local:    local,
		logger:   logger,
		retryMin: 500 * time.Millisecond,
		retryMax: 30 * time.Second,
	}
}

func (r *RedisRelay) Broadcast(ctx context.Context, update domain.StudentCountUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		// other instances miss this update, local observers still get it
		r.logger.Warn("redis publish failed, delivering locally", "channel", r.channel, "error", err)
		r.local.Publish(update)
		return nil
	}

	// without a subscription the published message never comes back to this instance
	if !r.subscribed.Load() {
		r.local.Publish(update)
	}
	return nil
}

// Run keeps a subscription to the channel until ctx is done, resubscribing with backoff
// whenever Redis is unreachable.
func (r *RedisRelay) Run(ctx context.Context) error {
	wait := r.retryMin
	for {
		established, err := r.subscribe(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if established {
			wait = r.retryMin
		}
		r.logger.Warn("relay not subscribed, retrying", "channel", r.channel, "retry_in", wait, "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait = min(wait*2, r.retryMax)
	}
}

func (r *RedisRelay) subscribe(ctx context.Context) (bool, error) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.subscribed.Store(true)
	defer r.subscribed.Store(false)
	r.logger.Info("relay subscribed", "channel", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-messages:
			if !ok {
				return true, fmt.Errorf("subscription to %s closed", r.channel)
			}
			var update domain.StudentCountUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				r.logger.Warn("dropping malformed relay message", "channel", r.channel, "error", err)
				continue
			}
			r.local.Publish(update)
		}
	}
}
