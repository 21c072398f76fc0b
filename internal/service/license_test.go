package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/backend/internal/domain"
	"keygate/backend/internal/storage/memory"
)

func TestLicenseService_Create(t *testing.T) {
	store := memory.NewStore()
	service := NewLicenseService(store)

	t.Run("创建密钥成功", func(t *testing.T) {
		key := &domain.LicenseKey{
			ID:   "1",
			Key:  "ABC-123",
			Type: "pro",
		}

		inserted, err := service.Create(key)

		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NotZero(t, key.CreatedAt, "未提交创建时间时由服务补齐")
	})

	t.Run("重复创建按成功处理但不写入", func(t *testing.T) {
		duplicate := &domain.LicenseKey{
			ID:  "2",
			Key: "abc-123", // 同值不同大小写
		}

		inserted, err := service.Create(duplicate)

		require.NoError(t, err)
		assert.False(t, inserted)

		keys, err := service.List()
		require.NoError(t, err)
		assert.Len(t, keys, 1)
		assert.Equal(t, "1", keys[0].ID)
	})

	t.Run("空密钥值被拒绝", func(t *testing.T) {
		_, err := service.Create(&domain.LicenseKey{ID: "3", Key: "   "})
		assert.ErrorIs(t, err, ErrEmptyKeyValue)
	})

	t.Run("保留调用方提交的创建时间", func(t *testing.T) {
		key := &domain.LicenseKey{
			ID:        "4",
			Key:       "KEEP-TS",
			CreatedAt: 1700000000000,
		}

		_, err := service.Create(key)

		require.NoError(t, err)
		assert.Equal(t, int64(1700000000000), key.CreatedAt)
	})
}

func TestLicenseService_List_Ordering(t *testing.T) {
	store := memory.NewStore()
	service := NewLicenseService(store)

	base := time.Now().UnixMilli()
	older := &domain.LicenseKey{ID: "1", Key: "OLD-1", CreatedAt: base - 1000}
	newer := &domain.LicenseKey{ID: "2", Key: "NEW-1", CreatedAt: base}

	_, err := service.Create(older)
	require.NoError(t, err)
	_, err = service.Create(newer)
	require.NoError(t, err)

	keys, err := service.List()
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "2", keys[0].ID, "列表按创建时间降序")
	assert.Equal(t, "1", keys[1].ID)
}

func TestLicenseService_Delete(t *testing.T) {
	store := memory.NewStore()
	service := NewLicenseService(store)

	_, err := service.Create(&domain.LicenseKey{ID: "1", Key: "DEL-1"})
	require.NoError(t, err)

	t.Run("删除存在的密钥", func(t *testing.T) {
		count, err := service.Delete("1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		keys, err := service.List()
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("删除不存在的密钥返回未找到", func(t *testing.T) {
		_, err := service.Delete("1")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestLicenseService_Revoke(t *testing.T) {
	store := memory.NewStore()
	service := NewLicenseService(store)

	_, err := service.Create(&domain.LicenseKey{ID: "1", Key: "REV-1"})
	require.NoError(t, err)

	t.Run("吊销存在的密钥", func(t *testing.T) {
		err := service.Revoke("1")
		require.NoError(t, err)

		key, err := store.GetKeyByID("1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRevoked, key.Status)
	})

	t.Run("吊销不存在的密钥返回未找到", func(t *testing.T) {
		err := service.Revoke("missing")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}
