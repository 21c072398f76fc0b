package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "ABC-123", CanonicalKey("abc-123"))
	assert.Equal(t, "ABC-123", CanonicalKey("  Abc-123  "))
	assert.Equal(t, "", CanonicalKey("   "))
}

func TestLicenseKey_Revoked(t *testing.T) {
	key := &LicenseKey{Status: StatusRevoked}
	assert.True(t, key.Revoked())

	// 状态为空视为激活
	key = &LicenseKey{}
	assert.False(t, key.Revoked())

	key = &LicenseKey{Status: StatusActive}
	assert.False(t, key.Revoked())
}

func TestLicenseKey_Expired(t *testing.T) {
	now := time.Now()

	// 无过期时间永不过期
	key := &LicenseKey{}
	assert.False(t, key.Expired(now))

	// 过期时间恰好等于当前时刻仍然有效
	at := now.UnixMilli()
	key = &LicenseKey{ExpiresAt: &at}
	assert.False(t, key.Expired(now))

	// 过期时间早于当前时刻 1 毫秒即过期
	past := now.UnixMilli() - 1
	key = &LicenseKey{ExpiresAt: &past}
	assert.True(t, key.Expired(now))

	future := now.UnixMilli() + 1
	key = &LicenseKey{ExpiresAt: &future}
	assert.False(t, key.Expired(now))
}
