package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mnbots/mnbot/types"
)

// RedisSettingsStore keeps per-user plugin settings and combine sessions.
// Entries expire after ttl of inactivity.
type RedisSettingsStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisSettingsStore(redisClient *RedisClient, ttlHours int) *RedisSettingsStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisSettingsStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisSettingsStore) settingsKey(userID int64) string {
	return s.client.key("user_settings", strconv.FormatInt(userID, 10))
}

func (s *RedisSettingsStore) combineKey(userID int64) string {
	return s.client.key("user_combine", strconv.FormatInt(userID, 10))
}

func (s *RedisSettingsStore) GetSettings(ctx context.Context, userID int64) (types.Settings, error) {
	settings := types.DefaultSettings()
	if err := s.client.getJSON(ctx, s.settingsKey(userID), &settings); err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.DefaultSettings(), nil
		}
		return types.DefaultSettings(), err
	}
	return settings, nil
}

func (s *RedisSettingsStore) SetSettings(ctx context.Context, userID int64, settings types.Settings) error {
	settings.LastActivity = time.Now().UTC()
	return s.client.setJSON(ctx, s.settingsKey(userID), settings, s.ttl)
}

// GetCombine returns nil without error when the user is not in combine mode.
func (s *RedisSettingsStore) GetCombine(ctx context.Context, userID int64) (*types.CombineSession, error) {
	var session types.CombineSession
	if err := s.client.getJSON(ctx, s.combineKey(userID), &session); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *RedisSettingsStore) SetCombine(ctx context.Context, userID int64, session *types.CombineSession) error {
	if session == nil {
		return s.DeleteCombine(ctx, userID)
	}
	return s.client.setJSON(ctx, s.combineKey(userID), session, s.ttl)
}

func (s *RedisSettingsStore) DeleteCombine(ctx context.Context, userID int64) error {
	return s.client.del(ctx, s.combineKey(userID))
}
