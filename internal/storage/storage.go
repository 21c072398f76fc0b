package storage

import (
	"errors"

	"keygate/backend/internal/domain"
)

var (
	// ErrKeyNotFound 密钥不存在错误
	ErrKeyNotFound = errors.New("license key not found")
	// ErrUnavailable 存储不可用错误。基础设施故障必须以此错误上报，
	// 绝不允许被折叠为"未找到"。
	ErrUnavailable = errors.New("repository unavailable")
)

// KeyRepository 定义许可证密钥数据存取操作。
//
// 约定：
//   - InsertKeyIfAbsent 对规范化密钥值做存在性检查，检查与写入对同值并发调用必须原子，
//     不允许产生重复记录；返回是否真正发生了插入。
//   - ListKeys 在所有后端上都按 CreatedAt 降序返回，排序是接口契约而非后端能力。
//   - DeleteKey 按 ID 删除至多一条记录，返回删除数量，调用方据此区分"删除生效"与"本就不存在"。
//   - GetKeyByValue 按规范化后的密钥值精确匹配。
type KeyRepository interface {
	InsertKeyIfAbsent(key *domain.LicenseKey) (bool, error)
	GetKeyByID(id string) (*domain.LicenseKey, error)
	GetKeyByValue(value string) (*domain.LicenseKey, error)
	ListKeys() ([]domain.LicenseKey, error)
	DeleteKey(id string) (int64, error)
	UpdateKeyStatus(id, status string) (int64, error)
}

// Store 定义完整的存储接口。
type Store interface {
	KeyRepository

	Close() error
	Health() error
}
