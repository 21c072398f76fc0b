package domain

import (
	"strings"
	"time"
)

// 许可证状态
const (
	StatusActive  = "ACTIVE"  // 激活状态（状态为空时的隐式默认值）
	StatusRevoked = "REVOKED" // 已吊销
)

// LicenseKey 许可证密钥实体
type LicenseKey struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Key       string `json:"key" gorm:"column:key_value;type:varchar(255);not null"` // 密钥原文（按提交形式存储）
	Canonical string `json:"-" gorm:"column:key_canonical;type:varchar(255);uniqueIndex;not null"`
	Type      string `json:"type,omitempty" gorm:"type:varchar(50)"`   // 分类（如 trial/pro），核心逻辑不关心取值
	Status    string `json:"status,omitempty" gorm:"type:varchar(20)"` // ACTIVE 或 REVOKED，为空视为 ACTIVE
	CreatedAt int64  `json:"createdAt" gorm:"index"`                   // 创建时间（毫秒时间戳），仅用于列表排序
	ExpiresAt *int64 `json:"expiresAt,omitempty"`                      // 过期时间（毫秒时间戳），为空表示永不过期
	Note      string `json:"note,omitempty" gorm:"type:varchar(255)"`  // 备注
}

// TableName 指定数据库表名
func (LicenseKey) TableName() string {
	return "license_keys"
}

// CanonicalKey 将密钥字符串规范化为比较用形式（统一大写）。
// 存储形式保持提交原文，所有跨后端的匹配都基于规范化形式。
func CanonicalKey(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// Revoked 判断密钥是否已被吊销
func (k *LicenseKey) Revoked() bool {
	return k.Status == StatusRevoked
}

// Expired 判断密钥在给定时刻是否已过期。
// 严格大于比较：expiresAt 恰好等于当前时刻时仍然有效。
func (k *LicenseKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.UnixMilli() > *k.ExpiresAt
}
