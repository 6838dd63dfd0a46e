package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/feedback_tag_server/config"
	"github.com/qs3c/feedback_tag_server/internal/api"
	"github.com/qs3c/feedback_tag_server/internal/api/handler"
	"github.com/qs3c/feedback_tag_server/internal/database"
	"github.com/qs3c/feedback_tag_server/internal/pkg/cron"
	"github.com/qs3c/feedback_tag_server/internal/pkg/logger"
	"github.com/qs3c/feedback_tag_server/internal/pkg/metrics"
	"github.com/qs3c/feedback_tag_server/internal/pkg/pubsub"
	"github.com/qs3c/feedback_tag_server/internal/pkg/queue"
	"github.com/qs3c/feedback_tag_server/internal/pkg/ws"
	"github.com/qs3c/feedback_tag_server/internal/repository"
	"github.com/qs3c/feedback_tag_server/internal/rotation"
	"github.com/qs3c/feedback_tag_server/internal/service"
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

	log := logger.New(cfg.Log, "server")

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	log.WithField("driver", cfg.Database.Driver).Info("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("failed to connect redis")
	}
	log.Info("redis connected")

	policy, err := rotation.NewPolicy(cfg.Rotation.Policy)
	if err != nil {
		log.WithError(err).Fatal("invalid rotation policy")
	}
	log.WithField("policy", policy.Name()).Info("rotation policy selected")

	// 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化 Queue 和 Pub/Sub
	exportQueue := queue.NewQueue(rdb, cfg.Queue.ExportQueue)
	publisher := pubsub.NewPublisher(rdb)

	// WebSocket Hub，转发 Redis 事件给在线会话
	wsHub := ws.NewHub(log)
	go func() {
		err := pubsub.NewSubscriber(rdb).Subscribe(ctx, func(e *pubsub.Event) {
			if err := wsHub.Broadcast(&ws.Message{Type: e.Type, Data: e}); err != nil {
				log.WithError(err).WithField("event", e.Type).Warn("failed to broadcast event")
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("event subscriber stopped")
		}
	}()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	jobRepo := repository.NewExportJobRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(cfg, rdb)
	questionService := service.NewQuestionService(questionRepo, responseRepo, policy)
	leaderboardService := service.NewLeaderboardService(userRepo, questionRepo, responseRepo, policy)
	submissionService := service.NewSubmissionService(
		userRepo, questionRepo, responseRepo, policy,
		cfg.Submission.PersistSkips, publisher, m, log,
	)
	exportService := service.NewExportService(responseRepo, jobRepo, exportQueue)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(leaderboardService)
	questionHandler := handler.NewQuestionHandler(questionService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	exportHandler := handler.NewExportHandler(exportService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, authService)

	// 导出文件定时清理
	cronService := cron.NewService(jobRepo, cfg.Export.Dir, cfg.Export.ExpireHours, log)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		questionHandler,
		submissionHandler,
		exportHandler,
		websocketHandler,
		authService,
		m,
		reg,
		log,
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	log.Info("server stopped")
}
