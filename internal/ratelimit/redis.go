package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 200 * time.Millisecond

type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisStore реализует middleware.RateLimiterStore фиксированным окном в Redis,
// чтобы лимит был общим для всех экземпляров сервера.
type RedisStore struct {
	client counter
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewRedisStore создает хранилище лимитов; limit запросов разрешено на одно окно.
func NewRedisStore(client counter, prefix string, limit int, window time.Duration, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
		logger: logger,
	}
}

// NewRedisClient создает клиент go-redis по настройкам приложения.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Allow увеличивает счетчик окна. При недоступности Redis запрос пропускается.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	key := s.key(identifier)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.WarnContext(ctx, "rate limit store unavailable",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true, nil
	}

	if count == 1 {
		if err := s.client.Expire(ctx, key, s.window).Err(); err != nil {
			s.logger.WarnContext(ctx, "rate limit expire failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	return count <= s.limit, nil
}

func (s *RedisStore) key(identifier string) string {
	bucket := s.now().UnixNano() / int64(s.window)
	return fmt.Sprintf("%s:%s:%d", s.prefix, identifier, bucket)
}
