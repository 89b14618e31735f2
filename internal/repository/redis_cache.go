package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	agreementKeyPrefix = "agreement:"

	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository caches agreements in Redis so the hot path of
// the external cycle runner (fetch agreement, roll forward) avoids a
// database read per agreement
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository creates a new Redis cache repository
func NewRedisCacheRepository(addr, password string, db int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Connected to Redis at %s", addr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// Close closes the Redis connection
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CacheAgreement stores an agreement in the cache
func (r *RedisCacheRepository) CacheAgreement(ctx context.Context, agreement domain.Agreement) error {
	key := agreementKeyPrefix + agreement.ID.String()

	data, err := json.Marshal(agreement)
	if err != nil {
		return fmt.Errorf("failed to marshal agreement: %w", err)
	}

	if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache agreement: %w", err)
	}

	return nil
}

// GetCachedAgreement returns the cached agreement, or nil on a miss
func (r *RedisCacheRepository) GetCachedAgreement(ctx context.Context, id uuid.UUID) (*domain.Agreement, error) {
	key := agreementKeyPrefix + id.String()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agreement from cache: %w", err)
	}

	var agreement domain.Agreement
	if err := json.Unmarshal(data, &agreement); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached agreement: %w", err)
	}

	return &agreement, nil
}

// InvalidateAgreement drops the cached agreement after a state change
func (r *RedisCacheRepository) InvalidateAgreement(ctx context.Context, id uuid.UUID) error {
	key := agreementKeyPrefix + id.String()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate agreement cache: %w", err)
	}
	return nil
}
