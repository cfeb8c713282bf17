package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tucpd/listening-app/pkg/models"
)

// RedisCache Redis 转录缓存（带过期时间）
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "listenloop"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// key 格式: "{prefix}:track:{id}"
func (rc *RedisCache) key(id string) string {
	return fmt.Sprintf("%s:track:%s", rc.prefix, id)
}

// Get 读取缓存；未命中返回 ErrNotFound
func (rc *RedisCache) Get(ctx context.Context, id string) (*models.Track, error) {
	data, err := rc.client.Get(ctx, rc.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("从 Redis 获取失败: %w", err)
	}

	var track models.Track
	if err := json.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("反序列化转录失败: %w", err)
	}
	return &track, nil
}

// Set 写入缓存
func (rc *RedisCache) Set(ctx context.Context, track *models.Track) error {
	data, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("序列化转录失败: %w", err)
	}
	if err := rc.client.Set(ctx, rc.key(track.ID), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("写入 Redis 失败: %w", err)
	}
	return nil
}

// Close 客户端与状态广播共用，由创建方关闭
func (rc *RedisCache) Close() error {
	return nil
}
