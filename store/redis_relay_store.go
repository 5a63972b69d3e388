package store

import (
	"context"
	"errors"
	"strconv"
	"time"
)

type RedisRelayStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisRelayStore(redisClient *RedisClient, ttl time.Duration) *RedisRelayStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisRelayStore{client: redisClient, ttl: ttl}
}

func (s *RedisRelayStore) Remember(ctx context.Context, ownerMessageID int, userID int64) error {
	key := s.client.key("relay", strconv.Itoa(ownerMessageID))
	return s.client.setJSON(ctx, key, userID, s.ttl)
}

func (s *RedisRelayStore) Lookup(ctx context.Context, ownerMessageID int) (int64, bool, error) {
	key := s.client.key("relay", strconv.Itoa(ownerMessageID))
	var userID int64
	if err := s.client.getJSON(ctx, key, &userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return userID, true, nil
}
