// pkg/api/server.go
package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server API服务器
type Server struct {
	router *gin.Engine
	srv    *http.Server
	logger *zap.Logger
}

// NewServer 创建新的API服务器
func NewServer(port string, readTimeout, writeTimeout time.Duration, logger *zap.Logger) *Server {
	router := gin.New()

	// 设置中间件
	router.Use(gin.Recovery())

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return &Server{
		router: router,
		srv:    srv,
		logger: logger,
	}
}

// SetupRoutes 设置路由
func (s *Server) SetupRoutes(handlers *Handlers) {
	// 健康检查与指标
	s.router.GET("/health", handlers.HealthCheck)
	s.router.GET("/metrics", handlers.Metrics)

	// API v1 路由组
	v1 := s.router.Group("/api/v1")
	{
		// 告警历史接口
		v1.GET("/alerts", handlers.GetAlerts)
		v1.GET("/alerts/stats", handlers.GetAlertStats)

		// 活跃规则集
		v1.GET("/rules", handlers.GetRules)
	}
}

// Start 启动服务器并阻塞到收到中断信号
func (s *Server) Start() {
	// 在goroutine中启动服务器
	go func() {
		s.logger.Info("API服务器启动", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.logger.Info("正在关闭服务器...")

	// 设置超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("关闭服务器失败", zap.Error(err))
	}
}
