package callstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "yemot:call:"

// RedisOptions tunes the Redis-backed store.
type RedisOptions struct {
	// KeyPrefix namespaces the per-call hashes. Defaults to "yemot:call:".
	KeyPrefix string
	// TTL, when positive, expires a call's hash that long after its last
	// write. A safety net for calls the router never tore down, e.g.
	// across a process restart.
	TTL time.Duration
}

// Redis is a Store backed by one Redis hash per call id. It survives
// process restarts and is shareable between nodes behind one yemot system.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*Redis)(nil)

// NewRedis wraps client as a call store.
func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix, ttl: opts.TTL}
}

func (r *Redis) key(callID string) string {
	return r.prefix + callID
}

func (r *Redis) Set(ctx context.Context, callID, key, value string) error {
	if err := r.client.HSet(ctx, r.key(callID), key, value).Err(); err != nil {
		return err
	}
	if r.ttl > 0 {
		return r.client.Expire(ctx, r.key(callID), r.ttl).Err()
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, callID, key string) (string, error) {
	v, err := r.client.HGet(ctx, r.key(callID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *Redis) Has(ctx context.Context, callID, key string) (bool, error) {
	return r.client.HExists(ctx, r.key(callID), key).Result()
}

func (r *Redis) Delete(ctx context.Context, callID, key string) error {
	return r.client.HDel(ctx, r.key(callID), key).Err()
}

func (r *Redis) All(ctx context.Context, callID string) (map[string]string, error) {
	vals, err := r.client.HGetAll(ctx, r.key(callID)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	return vals, nil
}

func (r *Redis) Len(ctx context.Context, callID string) (int, error) {
	n, err := r.client.HLen(ctx, r.key(callID)).Result()
	return int(n), err
}

func (r *Redis) Clear(ctx context.Context, callID string) error {
	return r.client.Del(ctx, r.key(callID)).Err()
}

func (r *Redis) ActiveCalls(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	return ids, iter.Err()
}
