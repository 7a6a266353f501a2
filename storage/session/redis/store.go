package redisstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trainingcmd/portal/core/session"
)

// Store keeps the session keys in a single redis hash, shared by every terminal pointed at it.
type Store struct {
	client *redis.Client
	key    string
}

var _ session.Store = (*Store)(nil)

// Open connects to the redis server at url (redis://[:password@]host:port/db).
func Open(ctx context.Context, url, key string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return New(client, key), nil
}

func New(client *redis.Client, key string) *Store {
	return &Store{client: client, key: key}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "reading %q", key)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	args := make(map[string]interface{}, len(values))
	for k, v := range values {
		args[k] = v
	}
	return errors.Wrap(s.client.HSet(ctx, s.key, args).Err(), "writing session")
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(s.client.HDel(ctx, s.key, keys...).Err(), "clearing session")
}

func (s *Store) Close() error {
	return s.client.Close()
}
