package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/feedback_tag_server/config"
	"github.com/qs3c/feedback_tag_server/internal/api/handler"
	"github.com/qs3c/feedback_tag_server/internal/api/middleware"
	"github.com/qs3c/feedback_tag_server/internal/pkg/metrics"
)

type Router struct {
	authHandler       *handler.AuthHandler
	userHandler       *handler.UserHandler
	questionHandler   *handler.QuestionHandler
	submissionHandler *handler.SubmissionHandler
	exportHandler     *handler.ExportHandler
	websocketHandler  *handler.WebSocketHandler
	authenticator     middleware.SessionAuthenticator
	metrics           *metrics.Metrics
	gatherer          prometheus.Gatherer
	log               logrus.FieldLogger
	cfg               *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	questionHandler *handler.QuestionHandler,
	submissionHandler *handler.SubmissionHandler,
	exportHandler *handler.ExportHandler,
	websocketHandler *handler.WebSocketHandler,
	authenticator middleware.SessionAuthenticator,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	log logrus.FieldLogger,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:       authHandler,
		userHandler:       userHandler,
		questionHandler:   questionHandler,
		submissionHandler: submissionHandler,
		exportHandler:     exportHandler,
		websocketHandler:  websocketHandler,
		authenticator:     authenticator,
		metrics:           m,
		gatherer:          gatherer,
		log:               log,
		cfg:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.log))
	engine.Use(r.metrics.Middleware())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	engine.GET("/healthz", func(c *gin.Context) {
		c.String(200, "ok")
	})

	api := engine.Group("/api/v1")
	{
		// WebSocket，令牌通过 query 传递
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 会话
		auth := api.Group("/auth")
		{
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/logout", r.authHandler.Logout)
			auth.GET("/session", r.authHandler.Session)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.authenticator))
		{
			users := authenticated.Group("/users")
			{
				users.GET("", r.userHandler.List)
				users.PUT("/:id", r.userHandler.Rename)
			}
			authenticated.GET("/leaderboard", r.userHandler.Leaderboard)
			authenticated.GET("/progress", r.userHandler.Progress)

			questions := authenticated.Group("/questions")
			{
				questions.GET("", r.questionHandler.List)
				questions.GET("/next", r.questionHandler.Next)
				questions.GET("/:id", r.questionHandler.Get)
			}

			authenticated.POST("/submissions", r.submissionHandler.Submit)

			export := authenticated.Group("/export")
			{
				export.GET("/responses.csv", r.exportHandler.Download)
				export.POST("/jobs", r.exportHandler.CreateJob)
				export.GET("/jobs/:id", r.exportHandler.GetJob)
			}
		}
	}

	return engine
}
