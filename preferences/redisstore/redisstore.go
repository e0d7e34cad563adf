// Package redisstore persists preferences in a Redis hash, one hash per
// profile key. Every mutation is a single command or MULTI block, so readers
// never see a half cleared profile.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ preferences.Repo = (*Repo)(nil)

type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string // hash key holding the profile, e.g. "ailab:prefs"
}

type Repo struct {
	client *redis.Client
	key    string
}

// Dial connects to Redis and verifies the connection.
func Dial(opts Options) (*Repo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, opts.Key), nil
}

// New wraps an existing client.
func New(client *redis.Client, key string) *Repo {
	return &Repo{client: client, key: key}
}

// Close closes the underlying client.
func (r *Repo) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repo) Load(ctx context.Context) (map[preferences.Key]string, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore] hgetall")
	}
	values := make(map[preferences.Key]string, len(fields))
	for k, v := range fields {
		values[preferences.Key(k)] = v
	}
	return values, nil
}

func (r *Repo) Put(ctx context.Context, values map[preferences.Key]string) error {
	if len(values) == 0 {
		return nil
	}
	if err := r.client.HSet(ctx, r.key, toFields(values)).Err(); err != nil {
		return errors.Wrap(err, "[redisstore] hset")
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, keys ...preferences.Key) error {
	if len(keys) == 0 {
		return nil
	}
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, string(k))
	}
	if err := r.client.HDel(ctx, r.key, fields...).Err(); err != nil {
		return errors.Wrap(err, "[redisstore] hdel")
	}
	return nil
}

func (r *Repo) Replace(ctx context.Context, values map[preferences.Key]string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(values) > 0 {
			pipe.HSet(ctx, r.key, toFields(values))
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "[redisstore] replace")
	}
	return nil
}

func toFields(values map[preferences.Key]string) map[string]any {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[string(k)] = v
	}
	return fields
}
