package credstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/campusgate/portalauth/session"
)

var _ session.Store = (*RedisStore)(nil)

// RedisStore persists the token pair in redis, for deployments where the
// session outlives a single process (a backend-for-frontend holding tokens
// on behalf of a browser). Each browser context gets its own key.
type RedisStore struct {
	client    *redis.Client
	contextID string
}

func NewRedisStore(client *redis.Client, contextID string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("[NewRedisStore] client is required")
	}
	if contextID == "" {
		return nil, errors.New("[NewRedisStore] contextID is required")
	}
	return &RedisStore{client: client, contextID: contextID}, nil
}

func (s *RedisStore) key() string {
	return fmt.Sprintf("portalauth:tokens:%s", s.contextID)
}

func (s *RedisStore) Save(ctx context.Context, accessToken, refreshToken string) error {
	data, err := json.Marshal(tokenPair{AccessToken: accessToken, RefreshToken: refreshToken})
	if err != nil {
		return errors.Wrap(err, "[RedisStore.Save] marshal tokens")
	}
	if err := s.client.Set(ctx, s.key(), data, 0).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Save] redis set")
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (string, string, error) {
	data, err := s.client.Get(ctx, s.key()).Result()
	if err == redis.Nil {
		return "", "", nil
	}
	if err != nil {
		return "", "", errors.Wrap(err, "[RedisStore.Load] redis get")
	}

	var pair tokenPair
	if err := json.Unmarshal([]byte(data), &pair); err != nil {
		return "", "", errors.Wrap(err, "[RedisStore.Load] unmarshal tokens")
	}
	return pair.AccessToken, pair.RefreshToken, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Clear] redis del")
	}
	return nil
}
