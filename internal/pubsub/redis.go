// Package pubsub propagates reachability cache invalidations between relay
// processes that share one bot identity, over Redis pub/sub.
package pubsub

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Channel returns the pub/sub channel used for botID.
func Channel(botID int64) string {
	return fmt.Sprintf("relay:reach:%d", botID)
}

// RedisInvalidator publishes and receives recipient ids whose reachability
// changed. Messages sent by the same instance are ignored on receipt.
type RedisInvalidator struct {
	cli     *redis.Client
	channel string
	origin  string
}

// NewRedis parses url and returns an invalidator for botID.
func NewRedis(url string, botID int64) (*RedisInvalidator, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("pubsub: parse redis url: %w", err)
	}
	return &RedisInvalidator{
		cli:     redis.NewClient(opt),
		channel: Channel(botID),
		origin:  uuid.NewString(),
	}, nil
}

// Ping checks connectivity.
func (r *RedisInvalidator) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}

// Close releases the client.
func (r *RedisInvalidator) Close() error { return r.cli.Close() }

// Publish announces that uid changed.
func (r *RedisInvalidator) Publish(ctx context.Context, uid int64) error {
	return r.cli.Publish(ctx, r.channel, encode(r.origin, uid)).Err()
}

// Subscribe calls fn for every uid announced by other instances until ctx is
// done.
func (r *RedisInvalidator) Subscribe(ctx context.Context, fn func(uid int64)) error {
	sub := r.cli.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("pubsub: subscribe %s: %w", r.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			origin, uid, err := decode(msg.Payload)
			if err != nil {
				log.Warn().Err(err).Str("channel", r.channel).Msg("pubsub: bad message")
				continue
			}
			if origin == r.origin {
				continue
			}
			fn(uid)
		}
	}
}

func encode(origin string, uid int64) string {
	return origin + ":" + strconv.FormatInt(uid, 10)
}

func decode(payload string) (string, int64, error) {
	i := strings.LastIndexByte(payload, ':')
	if i <= 0 {
		return "", 0, fmt.Errorf("pubsub: malformed payload %q", payload)
	}
	uid, err := strconv.ParseInt(payload[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("pubsub: malformed uid in %q: %w", payload, err)
	}
	return payload[:i], uid, nil
}
