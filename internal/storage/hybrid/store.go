package hybrid

import (
	"errors"
	"fmt"
	"time"

	"keygate/backend/internal/domain"
	"keygate/backend/internal/storage"
	"keygate/backend/internal/storage/postgres"
	"keygate/backend/internal/storage/redis"
)

// keyCacheTTL 记录缓存的生存时间。缓存的是密钥记录本身而非验证结论，
// 有效性永远按读取时刻的状态与过期时间重新计算。
//
// 状态变更后的失效与并发读回填之间存在竞争：撤销或删除的旧记录
// 最长可能再被命中 keyCacheTTL，之后必然过期。调大此值前先确认
// 这个陈旧窗口可以接受。
const keyCacheTTL = 30 * time.Second

// Store 混合存储实现，数据库为持久层，Redis 作为按值查找的读穿缓存。
type Store struct {
	db    *postgres.Store
	cache *redis.Cache
}

// NewStoreWithType 创建混合存储实例（指定数据库类型）
func NewStoreWithType(dbType, dsn string, opts postgres.Options, redisAddr, redisPassword string, redisDB int) (*Store, error) {
	var dbStore *postgres.Store
	var err error

	switch dbType {
	case "mysql":
		dbStore, err = postgres.NewMySQLStore(dsn, opts)
	case "postgres", "postgresql":
		dbStore, err = postgres.NewStore(dsn, opts)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: mysql, postgres)", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cache, err := redis.NewCache(redisAddr, redisPassword, redisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{
		db:    dbStore,
		cache: cache,
	}, nil
}

// InsertKeyIfAbsent 仅当同值记录不存在时插入
func (s *Store) InsertKeyIfAbsent(key *domain.LicenseKey) (bool, error) {
	inserted, err := s.db.InsertKeyIfAbsent(key)
	if err != nil {
		return false, err
	}
	if inserted {
		// 清理同值的历史缓存（例如删除后重建的场景）
		_ = s.cache.InvalidateKeyByValue(domain.CanonicalKey(key.Key))
	}
	return inserted, nil
}

// GetKeyByID 根据 ID 获取密钥
func (s *Store) GetKeyByID(id string) (*domain.LicenseKey, error) {
	return s.db.GetKeyByID(id)
}

// GetKeyByValue 根据规范化后的密钥值获取密钥，优先读缓存。
// 缓存故障只降级为直读数据库，不影响查询结果。
func (s *Store) GetKeyByValue(value string) (*domain.LicenseKey, error) {
	canonical := domain.CanonicalKey(value)

	if cached, err := s.cache.GetCachedKeyByValue(canonical); err == nil {
		return cached, nil
	}

	key, err := s.db.GetKeyByValue(value)
	if err != nil {
		return nil, err
	}

	_ = s.cache.CacheKeyByValue(key, keyCacheTTL)
	return key, nil
}

// ListKeys 返回全部密钥，按创建时间降序
func (s *Store) ListKeys() ([]domain.LicenseKey, error) {
	return s.db.ListKeys()
}

// DeleteKey 根据 ID 删除密钥并同步失效缓存
func (s *Store) DeleteKey(id string) (int64, error) {
	key, err := s.db.GetKeyByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}

	count, err := s.db.DeleteKey(id)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		_ = s.cache.InvalidateKeyByValue(key.Canonical)
	}
	return count, nil
}

// UpdateKeyStatus 更新密钥状态并同步失效缓存
func (s *Store) UpdateKeyStatus(id, status string) (int64, error) {
	key, err := s.db.GetKeyByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}

	count, err := s.db.UpdateKeyStatus(id, status)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		_ = s.cache.InvalidateKeyByValue(key.Canonical)
	}
	return count, nil
}

// Close 关闭数据库与 Redis 连接
func (s *Store) Close() error {
	cacheErr := s.cache.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return cacheErr
}

// Health 检查持久层连接。缓存不可用不视为存储不可用。
func (s *Store) Health() error {
	return s.db.Health()
}

// CacheHealth 检查缓存连接，供健康检查单独上报
func (s *Store) CacheHealth() error {
	return s.cache.Ping()
}
