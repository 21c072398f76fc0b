package service

import (
	"errors"
	"strings"
	"time"

	"keygate/backend/internal/domain"
	"keygate/backend/internal/storage"
)

var (
	ErrEmptyKeyValue = errors.New("license key value is required")
	ErrKeyNotFound   = errors.New("license key not found")
)

// LicenseService 许可证密钥生命周期服务。
// 负责密钥记录的不变式：值唯一性、状态流转与删除语义。
type LicenseService struct {
	store storage.Store
}

// NewLicenseService 创建许可证服务
func NewLicenseService(store storage.Store) *LicenseService {
	return &LicenseService{
		store: store,
	}
}

// Create 创建许可证密钥。
//
// 只要求密钥值非空，其余字段原样接受。同值记录已存在时不写入存储，
// 但仍按成功处理并回显提交的记录；inserted 供调用方区分真实插入与被掩盖的重复。
func (s *LicenseService) Create(key *domain.LicenseKey) (inserted bool, err error) {
	if strings.TrimSpace(key.Key) == "" {
		return false, ErrEmptyKeyValue
	}

	if key.CreatedAt == 0 {
		key.CreatedAt = time.Now().UnixMilli()
	}

	return s.store.InsertKeyIfAbsent(key)
}

// List 返回全部密钥，按创建时间降序
func (s *LicenseService) List() ([]domain.LicenseKey, error) {
	return s.store.ListKeys()
}

// Delete 根据 ID 删除密钥。
// 记录不存在时返回 ErrKeyNotFound，调用方据此与删除成功区分开，
// 以便对端清理本地残留的幽灵记录。
func (s *LicenseService) Delete(id string) (int64, error) {
	count, err := s.store.DeleteKey(id)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrKeyNotFound
	}
	return count, nil
}

// Revoke 将密钥状态置为 REVOKED。
// 吊销是就地状态更新，不经过创建路径（同值插入会被唯一性检查拦下）。
func (s *LicenseService) Revoke(id string) error {
	count, err := s.store.UpdateKeyStatus(id, domain.StatusRevoked)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrKeyNotFound
	}
	return nil
}
