package memory

import (
	"sort"
	"sync"

	"keygate/backend/internal/domain"
	"keygate/backend/internal/storage"
)

// Store 使用内存保存许可证密钥，作为未配置数据库时的回退后端。
type Store struct {
	mu      sync.RWMutex
	keys    map[string]*domain.LicenseKey // keyID -> key
	byValue map[string]string             // 规范化密钥值 -> keyID
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		keys:    make(map[string]*domain.LicenseKey),
		byValue: make(map[string]string),
	}
}

// InsertKeyIfAbsent 仅当同值记录不存在时插入。
// 存在性检查与写入在同一把写锁内完成，同值并发插入只会成功一次。
func (s *Store) InsertKeyIfAbsent(key *domain.LicenseKey) (bool, error) {
	canonical := domain.CanonicalKey(key.Key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byValue[canonical]; exists {
		return false, nil
	}

	// 同 ID 不同值的插入会覆盖旧记录，旧值的索引条目必须一并清掉，
	// 避免按旧值查到新记录。
	if prev, exists := s.keys[key.ID]; exists {
		delete(s.byValue, prev.Canonical)
	}

	stored := *key
	stored.Canonical = canonical
	s.keys[stored.ID] = &stored
	s.byValue[canonical] = stored.ID
	return true, nil
}

// GetKeyByID 根据 ID 获取密钥。
func (s *Store) GetKeyByID(id string) (*domain.LicenseKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	copied := *key
	return &copied, nil
}

// GetKeyByValue 根据规范化后的密钥值获取密钥。
func (s *Store) GetKeyByValue(value string) (*domain.LicenseKey, error) {
	canonical := domain.CanonicalKey(value)

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byValue[canonical]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	key, ok := s.keys[id]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	copied := *key
	return &copied, nil
}

// ListKeys 返回全部密钥的快照，按创建时间降序。
func (s *Store) ListKeys() ([]domain.LicenseKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.LicenseKey, 0, len(s.keys))
	for _, key := range s.keys {
		result = append(result, *key)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})
	return result, nil
}

// DeleteKey 根据 ID 删除密钥，返回删除数量（0 或 1）。
func (s *Store) DeleteKey(id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return 0, nil
	}
	delete(s.keys, id)
	delete(s.byValue, key.Canonical)
	return 1, nil
}

// UpdateKeyStatus 更新密钥状态，返回更新数量（0 或 1）。
func (s *Store) UpdateKeyStatus(id, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return 0, nil
	}
	key.Status = status
	return 1, nil
}

// Close 关闭存储（内存实现无需释放资源）。
func (s *Store) Close() error {
	return nil
}

// Health 健康检查（内存实现恒为健康）。
func (s *Store) Health() error {
	return nil
}
