package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mnbots/mnbot/types"
)

// RedisRecipientStore keeps every recipient as one field of a single hash,
// so upserts and deletes stay single-key operations.
type RedisRecipientStore struct {
	client *RedisClient
	key    string
}

func NewRedisRecipientStore(redisClient *RedisClient) *RedisRecipientStore {
	return &RedisRecipientStore{
		client: redisClient,
		key:    redisClient.key("recipients"),
	}
}

func (s *RedisRecipientStore) Upsert(ctx context.Context, r types.Recipient) error {
	field := strconv.FormatInt(r.ID, 10)
	r.DisplayName = strings.TrimSpace(r.DisplayName)

	var existing types.Recipient
	found, err := s.client.hgetJSON(ctx, s.key, field, &existing)
	if err == nil && found && !existing.CreatedAt.IsZero() {
		r.CreatedAt = existing.CreatedAt
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return s.client.hsetJSON(ctx, s.key, field, r)
}

func (s *RedisRecipientStore) Delete(ctx context.Context, id int64) error {
	return s.client.client.HDel(ctx, s.key, strconv.FormatInt(id, 10)).Err()
}

func (s *RedisRecipientStore) ScanAll(ctx context.Context) ([]types.Recipient, error) {
	var out []types.Recipient
	err := s.client.hscan(ctx, s.key, 500, func(field string, value []byte) error {
		var r types.Recipient
		if err := json.Unmarshal(value, &r); err != nil {
			return fmt.Errorf("decode recipient %s: %w", field, err)
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The last copy of a repeated field wins.
	seen := make(map[int64]int, len(out))
	uniq := out[:0]
	for _, r := range out {
		if idx, ok := seen[r.ID]; ok {
			uniq[idx] = r
			continue
		}
		seen[r.ID] = len(uniq)
		uniq = append(uniq, r)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].ID < uniq[j].ID })
	return uniq, nil
}

func (s *RedisRecipientStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.client.HLen(ctx, s.key).Result()
	return int(n), err
}
