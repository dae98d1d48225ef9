package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/userservice/internal/common"
	"github.com/dmitrijs2005/userservice/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// expiryGrace keeps an expired token in Redis long enough for the next
// validation to observe and purge it.
const expiryGrace = time.Minute

// RedisRepository keeps one JSON value per token under prefix+token. Keys
// expire on their own shortly after the token does.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisRepository(rdb redis.UniversalClient, prefix string) *RedisRepository {
	return &RedisRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRepository) key(token string) string {
	return r.prefix + token
}

func (r *RedisRepository) Exists(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRepository) FindByToken(ctx context.Context, token string) (*models.Token, error) {
	data, err := r.rdb.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	t := &models.Token{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}
	return t, nil
}

func (r *RedisRepository) Save(ctx context.Context, t *models.Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode token record: %w", err)
	}
	ttl := t.ExpiresAt.Sub(r.now())
	if ttl < 0 {
		ttl = 0
	}
	if err := r.rdb.Set(ctx, r.key(t.Token), data, ttl+expiryGrace).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Del(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}
