package httptransport

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keygate/backend/internal/domain"
	"keygate/backend/internal/monitoring"
	"keygate/backend/internal/service"
)

// LicenseKeyHandler 许可证密钥管理与验证处理器。
// 只负责请求解析与结论到状态码的映射，字段名是对外契约的一部分。
type LicenseKeyHandler struct {
	licenses *service.LicenseService
	verifier *service.VerifyService
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewLicenseKeyHandler 创建许可证密钥处理器
func NewLicenseKeyHandler(licenses *service.LicenseService, verifier *service.VerifyService, metrics *monitoring.Metrics, logger *zap.Logger) *LicenseKeyHandler {
	return &LicenseKeyHandler{
		licenses: licenses,
		verifier: verifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// verifyRequest 验证请求
type verifyRequest struct {
	Key string `json:"key"`
}

// CreateKey 创建密钥（管理面板用）。
// 同值记录已存在时同样返回成功并回显提交的记录，存储内容不变。
func (h *LicenseKeyHandler) CreateKey(c *gin.Context) {
	var key domain.LicenseKey
	if err := c.ShouldBindJSON(&key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"reason":  "EmptyInput",
			"message": "请求体格式错误",
		})
		return
	}

	inserted, err := h.licenses.Create(&key)
	if err != nil {
		if errors.Is(err, service.ErrEmptyKeyValue) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"reason":  "EmptyInput",
				"message": "未提交密钥值",
			})
			return
		}
		h.logger.Error("failed to create license key", zap.Error(err))
		h.unavailable(c)
		return
	}

	if inserted {
		h.metrics.RecordKeyCreated()
		h.logger.Info("license key created", zap.String("id", key.ID))
	} else {
		// 重复创建对调用方不可见，只在日志与指标中留痕
		h.metrics.RecordKeyDuplicate()
		h.logger.Warn("duplicate license key create masked", zap.String("id", key.ID))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     key,
	})
}

// ListKeys 返回全部密钥，按创建时间降序（管理面板用）
func (h *LicenseKeyHandler) ListKeys(c *gin.Context) {
	keys, err := h.licenses.List()
	if err != nil {
		h.logger.Error("failed to list license keys", zap.Error(err))
		h.unavailable(c)
		return
	}

	c.JSON(http.StatusOK, keys)
}

// DeleteKey 根据 ID 删除密钥（管理面板用）。
// 记录不存在返回独立的未找到结果，调用方据此清理本地残留记录。
func (h *LicenseKeyHandler) DeleteKey(c *gin.Context) {
	id := c.Param("id")

	count, err := h.licenses.Delete(id)
	if err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"reason":  "NotFound",
			})
			return
		}
		h.logger.Error("failed to delete license key", zap.Error(err), zap.String("id", id))
		h.unavailable(c)
		return
	}

	h.metrics.RecordKeyDeleted()
	h.logger.Info("license key deleted", zap.String("id", id))

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"deletedCount": count,
	})
}

// RevokeKey 将密钥就地置为吊销状态（管理面板用）
func (h *LicenseKeyHandler) RevokeKey(c *gin.Context) {
	id := c.Param("id")

	if err := h.licenses.Revoke(id); err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"reason":  "NotFound",
			})
			return
		}
		h.logger.Error("failed to revoke license key", zap.Error(err), zap.String("id", id))
		h.unavailable(c)
		return
	}

	h.metrics.RecordKeyRevoked()
	h.logger.Info("license key revoked", zap.String("id", id))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// VerifyKey 验证密钥（客户端应用用）
func (h *LicenseKeyHandler) VerifyKey(c *gin.Context) {
	var req verifyRequest
	// 解析失败按空输入处理，与未提交密钥值同责
	_ = c.ShouldBindJSON(&req)

	verdict, err := h.verifier.Verify(req.Key, time.Now())
	if err != nil {
		// 存储故障绝不折叠为 NotFound
		h.logger.Error("verification failed", zap.Error(err))
		h.unavailable(c)
		return
	}

	if !verdict.Valid {
		h.metrics.RecordVerification(string(verdict.Reason))

		status := http.StatusForbidden
		if verdict.Reason == service.ReasonEmptyInput {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"valid":   false,
			"reason":  string(verdict.Reason),
			"message": rejectMessage(verdict.Reason),
		})
		return
	}

	h.metrics.RecordVerification("Accepted")

	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"expiresAt": verdict.ExpiresAt,
	})
}

// unavailable 存储不可用的统一响应
func (h *LicenseKeyHandler) unavailable(c *gin.Context) {
	h.metrics.RecordError("repository_unavailable", "storage")
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "repository unavailable",
	})
}

// rejectMessage 拒绝原因对应的提示信息
func rejectMessage(reason service.RejectReason) string {
	switch reason {
	case service.ReasonEmptyInput:
		return "未提交密钥"
	case service.ReasonNotFound:
		return "密钥不存在或已被删除"
	case service.ReasonRevoked:
		return "密钥已被吊销"
	case service.ReasonExpired:
		return "密钥已过期"
	default:
		return "验证失败"
	}
}
