package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"keygate/backend/internal/domain"
	"keygate/backend/internal/storage"
	"keygate/backend/internal/storage/memory"
)

// MockStore 模拟存储接口
type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertKeyIfAbsent(key *domain.LicenseKey) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) GetKeyByID(id string) (*domain.LicenseKey, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LicenseKey), args.Error(1)
}

func (m *MockStore) GetKeyByValue(value string) (*domain.LicenseKey, error) {
	args := m.Called(value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LicenseKey), args.Error(1)
}

func (m *MockStore) ListKeys() ([]domain.LicenseKey, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LicenseKey), args.Error(1)
}

func (m *MockStore) DeleteKey(id string) (int64, error) {
	args := m.Called(id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) UpdateKeyStatus(id, status string) (int64, error) {
	args := m.Called(id, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Close() error  { return nil }
func (m *MockStore) Health() error { return nil }

func TestVerifyService_Verify(t *testing.T) {
	now := time.Now()

	t.Run("空输入先于查找被拒绝", func(t *testing.T) {
		service := NewVerifyService(memory.NewStore())

		verdict, err := service.Verify("   ", now)

		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.Equal(t, ReasonEmptyInput, verdict.Reason)
	})

	t.Run("无匹配记录返回未找到", func(t *testing.T) {
		service := NewVerifyService(memory.NewStore())

		verdict, err := service.Verify("MISSING-1", now)

		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.Equal(t, ReasonNotFound, verdict.Reason)
	})

	t.Run("匹配不区分大小写", func(t *testing.T) {
		store := memory.NewStore()
		service := NewVerifyService(store)

		_, err := store.InsertKeyIfAbsent(&domain.LicenseKey{ID: "1", Key: "ABC123"})
		require.NoError(t, err)

		verdict, err := service.Verify("abc123", now)

		require.NoError(t, err)
		assert.True(t, verdict.Valid)
		assert.Nil(t, verdict.ExpiresAt)
	})

	t.Run("吊销检查先于过期检查", func(t *testing.T) {
		store := memory.NewStore()
		service := NewVerifyService(store)

		// 既吊销又过期的记录必须报告 Revoked
		past := now.UnixMilli() - 1
		_, err := store.InsertKeyIfAbsent(&domain.LicenseKey{
			ID:        "1",
			Key:       "REVOKED-1",
			Status:    domain.StatusRevoked,
			ExpiresAt: &past,
		})
		require.NoError(t, err)

		verdict, err := service.Verify("REVOKED-1", now)

		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.Equal(t, ReasonRevoked, verdict.Reason)
	})

	t.Run("过期边界为严格大于", func(t *testing.T) {
		store := memory.NewStore()
		service := NewVerifyService(store)

		exact := now.UnixMilli()
		_, err := store.InsertKeyIfAbsent(&domain.LicenseKey{ID: "1", Key: "EDGE-1", ExpiresAt: &exact})
		require.NoError(t, err)

		// 过期时间恰好等于当前时刻仍然有效
		verdict, err := service.Verify("EDGE-1", now)
		require.NoError(t, err)
		assert.True(t, verdict.Valid)
		require.NotNil(t, verdict.ExpiresAt)
		assert.Equal(t, exact, *verdict.ExpiresAt)

		// 晚 1 毫秒即过期
		verdict, err = service.Verify("EDGE-1", now.Add(time.Millisecond))
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.Equal(t, ReasonExpired, verdict.Reason)
	})

	t.Run("存储故障不折叠为未找到", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetKeyByValue", "ANY-1").Return(nil, storage.ErrUnavailable)
		service := NewVerifyService(store)

		_, err := service.Verify("ANY-1", now)

		assert.ErrorIs(t, err, storage.ErrUnavailable)
		store.AssertExpectations(t)
	})
}

// TestVerify_Lifecycle 覆盖创建、验证、删除、再验证的完整链路
func TestVerify_Lifecycle(t *testing.T) {
	store := memory.NewStore()
	licenses := NewLicenseService(store)
	verifier := NewVerifyService(store)
	now := time.Now()

	inserted, err := licenses.Create(&domain.LicenseKey{ID: "1", Key: "ABC-123"})
	require.NoError(t, err)
	assert.True(t, inserted)

	verdict, err := verifier.Verify("abc-123", now)
	require.NoError(t, err)
	assert.True(t, verdict.Valid)
	assert.Nil(t, verdict.ExpiresAt)

	count, err := licenses.Delete("1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	verdict, err = verifier.Verify("abc-123", now)
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Equal(t, ReasonNotFound, verdict.Reason)

	_, err = licenses.Delete("1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
