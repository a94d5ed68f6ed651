package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wisefido-intake/internal/common/logger"
	"wisefido-intake/internal/config"
	"wisefido-intake/internal/service"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk interview service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				os.Setenv("INTAKE_CONFIG", configPath)
			}
			return runServe()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config overlay (overrides INTAKE_CONFIG)")
	return cmd
}

func runServe() error {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化Logger
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-intake")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting wisefido-intake service",
		zap.String("version", Version),
		zap.String("device_id", cfg.Device.ID),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	// 创建服务
	svc, err := service.NewIntakeService(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create intake service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start intake service: %w", err)
	}

	// 等待中断信号或组件异常退出
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case <-svc.Done():
		log.Warn("Service component exited, shutting down")
	}

	// 优雅关闭
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	cancel()
	if err := svc.Stop(stopCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
		return err
	}

	log.Info("Service stopped")
	return nil
}
