package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"keygate/backend/internal/domain"
	"keygate/backend/internal/storage"
)

// Store SQL 数据库存储实现（支持 PostgreSQL 和 MySQL）
type Store struct {
	db *gorm.DB
}

// Options 连接池配置
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions 返回默认连接池配置
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string, opts Options) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn), opts)
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string, opts Options) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn), opts)
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector, opts Options) (*Store, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(&domain.LicenseKey{})
}

// InsertKeyIfAbsent 仅当同值记录不存在时插入。
// 依赖 key_canonical 列的唯一索引，由数据库保证同值并发插入只成功一次
// （PostgreSQL 为 ON CONFLICT DO NOTHING，MySQL 为 INSERT IGNORE）。
func (s *Store) InsertKeyIfAbsent(key *domain.LicenseKey) (bool, error) {
	record := *key
	record.Canonical = domain.CanonicalKey(record.Key)

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key_canonical"}},
		DoNothing: true,
	}).Create(&record)
	if result.Error != nil {
		return false, infraError("insert license key", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// GetKeyByID 根据 ID 获取密钥
func (s *Store) GetKeyByID(id string) (*domain.LicenseKey, error) {
	var key domain.LicenseKey
	err := s.db.Where("id = ?", id).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrKeyNotFound
		}
		return nil, infraError("get license key by id", err)
	}
	return &key, nil
}

// GetKeyByValue 根据规范化后的密钥值获取密钥
func (s *Store) GetKeyByValue(value string) (*domain.LicenseKey, error) {
	var key domain.LicenseKey
	err := s.db.Where("key_canonical = ?", domain.CanonicalKey(value)).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrKeyNotFound
		}
		return nil, infraError("get license key by value", err)
	}
	return &key, nil
}

// ListKeys 返回全部密钥，按创建时间降序
func (s *Store) ListKeys() ([]domain.LicenseKey, error) {
	var keys []domain.LicenseKey
	err := s.db.Order("created_at DESC").Find(&keys).Error
	if err != nil {
		return nil, infraError("list license keys", err)
	}
	return keys, nil
}

// DeleteKey 根据 ID 删除密钥，返回删除数量
func (s *Store) DeleteKey(id string) (int64, error) {
	result := s.db.Where("id = ?", id).Delete(&domain.LicenseKey{})
	if result.Error != nil {
		return 0, infraError("delete license key", result.Error)
	}
	return result.RowsAffected, nil
}

// UpdateKeyStatus 更新密钥状态，返回更新数量
func (s *Store) UpdateKeyStatus(id, status string) (int64, error) {
	result := s.db.Model(&domain.LicenseKey{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return 0, infraError("update license key status", result.Error)
	}
	return result.RowsAffected, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// infraError 将数据库错误包装为存储不可用错误，
// 保证基础设施故障不会被上层误判为"未找到"。
func infraError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", storage.ErrUnavailable, op, err)
}
