package service

import (
	"errors"
	"strings"
	"time"

	"keygate/backend/internal/storage"
)

// RejectReason 验证被拒绝的原因
type RejectReason string

const (
	ReasonEmptyInput RejectReason = "EmptyInput" // 未提交密钥值
	ReasonNotFound   RejectReason = "NotFound"   // 无匹配记录
	ReasonRevoked    RejectReason = "Revoked"    // 记录已吊销
	ReasonExpired    RejectReason = "Expired"    // 记录已过期
)

// Verdict 单次验证的结论。Valid 为 false 时 Reason 必有值。
type Verdict struct {
	Valid     bool
	Reason    RejectReason
	ExpiresAt *int64 // 通过验证时回传的过期时间，可为空
}

// VerifyService 验证引擎。
// 无调用间状态，不修改记录，结论只由 (状态, 过期时间, 当前时刻) 决定。
type VerifyService struct {
	store storage.Store
}

// NewVerifyService 创建验证服务
func NewVerifyService(store storage.Store) *VerifyService {
	return &VerifyService{
		store: store,
	}
}

// Verify 验证提交的密钥值在 now 时刻是否有效。
//
// 判定顺序是契约的一部分：空输入先于查找，吊销先于过期。
// 吊销与过期同时成立时必须报告 Revoked，两类拒绝对应不同的用户处置方式。
// 存储故障通过 error 通道上报，绝不折叠为 NotFound 结论。
func (s *VerifyService) Verify(value string, now time.Time) (Verdict, error) {
	if strings.TrimSpace(value) == "" {
		return Verdict{Valid: false, Reason: ReasonEmptyInput}, nil
	}

	key, err := s.store.GetKeyByValue(value)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return Verdict{Valid: false, Reason: ReasonNotFound}, nil
		}
		return Verdict{}, err
	}

	if key.Revoked() {
		return Verdict{Valid: false, Reason: ReasonRevoked}, nil
	}

	if key.Expired(now) {
		return Verdict{Valid: false, Reason: ReasonExpired}, nil
	}

	return Verdict{Valid: true, ExpiresAt: key.ExpiresAt}, nil
}
