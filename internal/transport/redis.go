package transport

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a TaskTransport backed by a single Redis list. Push does LPUSH;
// Pop does BRPOPLPUSH into a processing list so an item survives a worker
// crash between pop and ack (the Coordinator's own lease/sweep mechanism is
// the source of truth for retry, so the processing list here is drained
// opportunistically and never itself re-delivers — see Ack).
type Redis struct {
	client        *redis.Client
	key           string
	processingKey string
}

// NewRedis wraps an existing *redis.Client. key names the work list;
// key+":processing" names the in-flight list BRPOPLPUSH moves items into.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key, processingKey: key + ":processing"}
}

func (r *Redis) Push(ctx context.Context, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, r.key, data).Err()
}

// Pop blocks up to timeout for an item, atomically moving it to the
// processing list. Callers that successfully dispatch the item should call
// Ack once it is durably handed off (the Coordinator's lease table, in this
// repo's case).
func (r *Redis) Pop(ctx context.Context, timeout time.Duration) (Item, bool, error) {
	raw, err := r.client.BRPopLPush(ctx, r.key, r.processingKey, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Item{}, false, err
	}
	return item, true, nil
}

// Ack removes one matching entry from the processing list, signaling the
// item was durably handed off and does not need to be replayed.
func (r *Redis) Ack(ctx context.Context, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return r.client.LRem(ctx, r.processingKey, 1, data).Err()
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, r.key).Result()
	return int(n), err
}
