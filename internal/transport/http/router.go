package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keygate/backend/internal/config"
	"keygate/backend/internal/middleware"
	"keygate/backend/internal/monitoring"
	"keygate/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	LicenseService *service.LicenseService
	VerifyService  *service.VerifyService
	Metrics        *monitoring.Metrics
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics.RecordPanic))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))
	router.Use(middleware.HTTPMetrics(deps.Metrics))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := NewLicenseKeyHandler(deps.LicenseService, deps.VerifyService, deps.Metrics, deps.Logger)

	// 首页：用于快速确认服务存活
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte("<h1>KeyGate server is running</h1><p>将此地址配置到管理面板与客户端应用。</p>"))
	})

	api := router.Group("/api")
	{
		api.GET("/keys", handler.ListKeys)
		api.POST("/keys", handler.CreateKey)
		api.DELETE("/keys/:id", handler.DeleteKey)
		api.POST("/keys/:id/revoke", handler.RevokeKey)
		api.POST("/verify", handler.VerifyKey)
	}

	return router
}
