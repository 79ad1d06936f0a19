package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AirTrafficStory/src/api"
	"AirTrafficStory/src/config"
	"AirTrafficStory/src/dashboard"
	"AirTrafficStory/src/datasource"
	"AirTrafficStory/src/datasource/file"
	"AirTrafficStory/src/storage"

	"github.com/robfig/cron"
)

// ConfigDirEnv 覆盖配置目录
const ConfigDirEnv = "AIR_CONFIG_DIR"

func main() {
	jsonFolder := "./config"
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		jsonFolder = dir
	}
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	logger.SetLevel(storage.ParseLevel(cfg.LogLevel))

	// 数据快照与结果缓存；首次载入失败时以空快照继续运行
	cache := storage.NewResultCache(cfg.Analysis.CacheEntries)
	store := datasource.NewStore(cfg, dcfg, cache, logger)
	if err := store.Load(); err != nil {
		logger.Error("首次载入数据失败: " + err.Error())
	}
	svc := dashboard.NewService(store, cache, dashboard.OptionsFromConfig(cfg, dcfg), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 数据目录变化时重新载入
	monitor, err := file.NewFileMonitor(store.Dirs()...)
	if err != nil {
		logger.Error("创建文件监控失败: " + err.Error())
	} else {
		defer monitor.Close()
		go func() {
			if err := monitor.Watch(ctx, store.Changed); err != nil {
				logger.Error("文件监控退出: " + err.Error())
			}
		}()
	}

	// 设置定时任务
	c := cron.New()
	if err := scheduleJobs(ctx, c, cfg, svc, logger); err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return // 重要错误应该终止程序
	}
	c.Start()
	defer c.Stop()

	router := api.NewRouter(api.NewHandlers(svc, store, logger, logger), time.Duration(cfg.Server.RequestTimeout))
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP 服务已启动: " + cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP 服务异常退出: " + err.Error())
			cancel()
		}
	}()

	waitForShutdown(ctx, cfg, logger)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP 服务关闭失败: " + err.Error())
	}
	logger.Info("服务已停止")
	logger.Close()
}

// waitForShutdown SIGHUP 重新打开日志文件(配合外部 logrotate)，SIGINT/SIGTERM 退出
func waitForShutdown(ctx context.Context, cfg *config.Config, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if err := logger.Reopen(cfg.LogName); err != nil {
					fmt.Fprintln(os.Stderr, "reopen log:", err)
				}
				logger.Info("日志文件已重新打开")
				continue
			}
			logger.Info("Received signal: " + sig.String() + ", shutting down...")
			return
		}
	}
}
