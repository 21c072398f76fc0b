package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/backend/internal/domain"
	"keygate/backend/internal/storage"
)

func TestMemoryStore_InsertAndLookup(t *testing.T) {
	store := NewStore()

	key := &domain.LicenseKey{
		ID:        "key-1",
		Key:       "ABC-123",
		Type:      "pro",
		CreatedAt: time.Now().UnixMilli(),
	}

	inserted, err := store.InsertKeyIfAbsent(key)
	require.NoError(t, err)
	assert.True(t, inserted)

	// 按 ID 查找
	got, err := store.GetKeyByID("key-1")
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", got.Key)
	assert.Equal(t, "pro", got.Type)

	// 按值查找不区分大小写
	got, err = store.GetKeyByValue("abc-123")
	require.NoError(t, err)
	assert.Equal(t, "key-1", got.ID)

	_, err = store.GetKeyByValue("missing")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestMemoryStore_InsertIfAbsent_SkipsDuplicateValue(t *testing.T) {
	store := NewStore()

	first := &domain.LicenseKey{ID: "key-1", Key: "DUP-1"}
	inserted, err := store.InsertKeyIfAbsent(first)
	require.NoError(t, err)
	assert.True(t, inserted)

	// 同值不同大小写视为重复
	second := &domain.LicenseKey{ID: "key-2", Key: "dup-1"}
	inserted, err = store.InsertKeyIfAbsent(second)
	require.NoError(t, err)
	assert.False(t, inserted)

	keys, err := store.ListKeys()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	assert.Equal(t, "key-1", keys[0].ID)
}

func TestMemoryStore_InsertIfAbsent_IDReuseCleansValueIndex(t *testing.T) {
	store := NewStore()

	first := &domain.LicenseKey{ID: "key-1", Key: "OLD-1"}
	inserted, err := store.InsertKeyIfAbsent(first)
	require.NoError(t, err)
	require.True(t, inserted)

	// 同 ID 不同值的插入覆盖旧记录
	second := &domain.LicenseKey{ID: "key-1", Key: "NEW-1"}
	inserted, err = store.InsertKeyIfAbsent(second)
	require.NoError(t, err)
	assert.True(t, inserted)

	// 旧值的索引条目被清理，不会查到新记录
	_, err = store.GetKeyByValue("OLD-1")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	got, err := store.GetKeyByValue("NEW-1")
	require.NoError(t, err)
	assert.Equal(t, "key-1", got.ID)
}

func TestMemoryStore_ListKeys_OrderedByCreatedAtDesc(t *testing.T) {
	store := NewStore()

	base := time.Now().UnixMilli()
	for i := 0; i < 3; i++ {
		key := &domain.LicenseKey{
			ID:        fmt.Sprintf("key-%d", i),
			Key:       fmt.Sprintf("KEY-%d", i),
			CreatedAt: base + int64(i),
		}
		_, err := store.InsertKeyIfAbsent(key)
		require.NoError(t, err)
	}

	keys, err := store.ListKeys()
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, "key-2", keys[0].ID)
	assert.Equal(t, "key-1", keys[1].ID)
	assert.Equal(t, "key-0", keys[2].ID)
}

func TestMemoryStore_DeleteKey(t *testing.T) {
	store := NewStore()

	key := &domain.LicenseKey{ID: "key-1", Key: "DEL-1"}
	_, err := store.InsertKeyIfAbsent(key)
	require.NoError(t, err)

	count, err := store.DeleteKey("key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 删除后值索引同步清理，可重新插入同值密钥
	_, err = store.GetKeyByValue("DEL-1")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	count, err = store.DeleteKey("key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMemoryStore_UpdateKeyStatus(t *testing.T) {
	store := NewStore()

	key := &domain.LicenseKey{ID: "key-1", Key: "REV-1"}
	_, err := store.InsertKeyIfAbsent(key)
	require.NoError(t, err)

	count, err := store.UpdateKeyStatus("key-1", domain.StatusRevoked)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.GetKeyByID("key-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRevoked, got.Status)

	count, err = store.UpdateKeyStatus("missing", domain.StatusRevoked)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMemoryStore_ConcurrentInsertSameValue(t *testing.T) {
	store := NewStore()
	const workers = 32

	var wg sync.WaitGroup
	insertedCount := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := &domain.LicenseKey{
				ID:  fmt.Sprintf("key-%d", n),
				Key: "RACE-1",
			}
			inserted, err := store.InsertKeyIfAbsent(key)
			assert.NoError(t, err)
			insertedCount <- inserted
		}(i)
	}
	wg.Wait()
	close(insertedCount)

	wins := 0
	for inserted := range insertedCount {
		if inserted {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	keys, err := store.ListKeys()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewStore()

	key := &domain.LicenseKey{ID: "key-1", Key: "COPY-1"}
	_, err := store.InsertKeyIfAbsent(key)
	require.NoError(t, err)

	got, err := store.GetKeyByID("key-1")
	require.NoError(t, err)
	got.Status = domain.StatusRevoked

	// 调用方修改返回值不影响存储内容
	again, err := store.GetKeyByID("key-1")
	require.NoError(t, err)
	assert.Empty(t, again.Status)
}
