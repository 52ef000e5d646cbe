package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/config"
	"github.com/Praneyaarora/Murgamon-project/internal/lora"
	"github.com/Praneyaarora/Murgamon-project/internal/service"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	instanceID := uuid.New().String()

	// 3. 打开无线模块串口（未配置则运行于仅本机传感器模式）
	var port lora.Port
	if cfg.LoRa.Device != "" {
		f, err := os.OpenFile(cfg.LoRa.Device, os.O_RDWR, 0)
		if err != nil {
			logger.Fatal("Failed to open radio device",
				zap.String("device", cfg.LoRa.Device),
				zap.Error(err),
			)
		}
		port = f
	}

	// 4. 创建网关服务
	gateway, err := service.NewGateway(cfg, port, nil, instanceID, logger)
	if err != nil {
		logger.Fatal("Failed to create gateway service",
			zap.Error(err),
		)
	}
	defer gateway.Stop()

	// 5. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. 启动服务（在 goroutine 中）
	serviceErrChan := make(chan error, 1)
	go func() {
		serviceErrChan <- gateway.Start(ctx)
	}()

	// 7. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
		// 等待全部子任务退出后再释放数据库等资源
		if err := <-serviceErrChan; err != nil {
			logger.Error("Service stopped with error",
				zap.Error(err),
			)
		}
	case err := <-serviceErrChan:
		if err != nil {
			logger.Fatal("Service error",
				zap.Error(err),
			)
		}
	}

	logger.Info("Farm gateway stopped")
}

// initLogger 初始化日志
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Log.Format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}
