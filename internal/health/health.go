package health

import (
	"fmt"
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"keygate/backend/internal/storage"
)

// CacheChecker 支持单独上报缓存健康状况的存储后端
type CacheChecker interface {
	CacheHealth() error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.Store
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.Store, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	hc.addChecks()

	return hc
}

// addChecks 添加健康检查项
func (hc *HealthChecker) addChecks() {
	// 存储后端检查
	hc.health.AddLivenessCheck("storage", func() error {
		return hc.store.Health()
	})

	// 缓存检查（混合存储才有）
	if cacheStore, ok := hc.store.(CacheChecker); ok {
		hc.health.AddReadinessCheck("cache", func() error {
			return cacheStore.CacheHealth()
		})
	}

	// goroutine 数量检查
	hc.health.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(500))
}

// Handler 返回健康检查处理器。
// 注意它是按 /live、/ready 自带路由的 ServeMux，挂到其他路径时
// 应改用 Live/Ready 的具体端点。
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// Live 返回存活探针端点，仅执行存活检查
func (hc *HealthChecker) Live() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// Ready 返回就绪探针端点，执行存活与就绪两组检查
func (hc *HealthChecker) Ready() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}

// CheckHealth 执行健康检查并返回各项结果
func (hc *HealthChecker) CheckHealth() map[string]string {
	results := make(map[string]string)

	if err := hc.store.Health(); err != nil {
		results["storage"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["storage"] = "OK"
	}

	if cacheStore, ok := hc.store.(CacheChecker); ok {
		if err := cacheStore.CacheHealth(); err != nil {
			results["cache"] = fmt.Sprintf("ERROR: %v", err)
		} else {
			results["cache"] = "OK"
		}
	}

	return results
}
