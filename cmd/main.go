package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"appbuilder-backend/internal/config"
	"appbuilder-backend/internal/handler"
	"appbuilder-backend/internal/model"
	"appbuilder-backend/internal/service"
	"appbuilder-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// 初始化生成引擎
	generator, err := model.NewGenerator(context.Background(), cfg)
	if err != nil {
		logger.Fatalf("Failed to init generator: %v", err)
	}

	// 初始化服务和处理器
	generationService := service.NewGenerationService(generator, cfg.Generation.SystemPrompt)
	promptHandler := handler.NewPromptHandler(generationService)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, promptHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// 启动服务器
	go func() {
		logger.Infof("服务器启动在端口 %d (provider=%s)", cfg.Server.Port, cfg.Model.Provider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// 进行中的流不会自己结束，超时后强制关闭
	if err := server.Shutdown(ctx); err != nil {
		logger.Warnf("优雅关闭超时，强制关闭: %v", err)
		if err := server.Close(); err != nil {
			logger.Errorf("服务器关闭失败: %v", err)
		}
	}
	logger.Info("服务器已关闭")
}
