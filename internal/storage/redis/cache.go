package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"keygate/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = errors.New("cache miss")

// Cache Redis 记录缓存实现。
// 只缓存密钥记录本身，验证结论始终由上层按当前时间重新计算。
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx := context.Background()

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// valueKey 规范化密钥值对应的缓存键
func valueKey(canonical string) string {
	return fmt.Sprintf("licensekey:value:%s", canonical)
}

// CacheKeyByValue 按规范化密钥值缓存记录
func (c *Cache) CacheKeyByValue(key *domain.LicenseKey, ttl time.Duration) error {
	data, err := json.Marshal(key)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, valueKey(key.Canonical), data, ttl).Err()
}

// GetCachedKeyByValue 按规范化密钥值读取缓存记录
func (c *Cache) GetCachedKeyByValue(canonical string) (*domain.LicenseKey, error) {
	data, err := c.client.Get(c.ctx, valueKey(canonical)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var key domain.LicenseKey
	if err := json.Unmarshal([]byte(data), &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// InvalidateKeyByValue 按规范化密钥值删除缓存记录
func (c *Cache) InvalidateKeyByValue(canonical string) error {
	return c.client.Del(c.ctx, valueKey(canonical)).Err()
}

// Ping 测试 Redis 连接
func (c *Cache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}
