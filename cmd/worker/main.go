package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/feedback_tag_server/config"
	"github.com/qs3c/feedback_tag_server/internal/database"
	"github.com/qs3c/feedback_tag_server/internal/pkg/logger"
	"github.com/qs3c/feedback_tag_server/internal/pkg/metrics"
	"github.com/qs3c/feedback_tag_server/internal/pkg/oss"
	"github.com/qs3c/feedback_tag_server/internal/pkg/pubsub"
	"github.com/qs3c/feedback_tag_server/internal/pkg/queue"
	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/service"
	"github.com/qs3c/feedback_tag_server/internal/worker"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log := logger.New(cfg.Log, "worker")

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	log.Info("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("failed to connect redis")
	}
	log.Info("redis connected")

	// 初始化 OSS（可选），未配置时导出文件只保存在本地
	var uploader worker.Uploader
	if cfg.OSS.Enabled() {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.WithError(err).Warn("failed to init OSS client, exports stay local")
		} else {
			uploader = ossClient
			log.Info("OSS client initialized")
		}
	}

	// 初始化 Queue 和 Pub/Sub
	exportQueue := queue.NewQueue(rdb, cfg.Queue.ExportQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository 和 Service
	responseRepo := repository.NewResponseRepository(db)
	jobRepo := repository.NewExportJobRepository(db)
	exportService := service.NewExportService(responseRepo, jobRepo, exportQueue)

	// 创建任务处理器
	processor := worker.NewProcessor(
		jobRepo, exportService, uploader, publisher,
		cfg.Export.Dir, metrics.New(nil), log,
	)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	if uploader != nil {
		go worker.NewReuploader(jobRepo, uploader, log).Start(ctx)
	}

	maxWorkers := cfg.Queue.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	log.WithField("max_workers", maxWorkers).Info("worker started")

	// 启动 worker 循环
	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			wlog := log.WithField("worker_id", workerID)
			for {
				select {
				case <-ctx.Done():
					wlog.Info("worker shutting down")
					return
				default:
				}

				// 从队列获取任务
				msg, err := exportQueue.Pop(ctx, 5*time.Second)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					wlog.WithError(err).Warn("failed to pop job")
					time.Sleep(time.Second)
					continue
				}
				if msg == nil {
					continue // 超时，继续等待
				}

				wlog.WithField("job_id", msg.JobID).Info("processing export job")
				if err := processor.Process(ctx, msg); err != nil {
					wlog.WithError(err).WithField("job_id", msg.JobID).Error("export job failed")
				}
			}
		}(i)
	}

	wg.Wait()
	log.Info("worker shutdown complete")
}
