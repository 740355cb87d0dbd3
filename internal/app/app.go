package app

import (
	"context"
	"courseconnect_backend/internal/config"
	"courseconnect_backend/internal/controller"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/pkg/configwatcher"
	"courseconnect_backend/pkg/database"
	"courseconnect_backend/pkg/logger"
	"courseconnect_backend/pkg/monitoring"
	"courseconnect_backend/pkg/security"
	"courseconnect_backend/pkg/tracing"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	class        *repository.ClassRepository
	membership   *repository.MembershipRepository
	question     *repository.QuestionRepository
	answer       *repository.AnswerRepository
	reply        *repository.ReplyRepository
	material     *repository.MaterialRepository
	announcement *repository.AnnouncementRepository
	vote         *repository.VoteRepository
}

type services struct {
	policy       *service.Policy
	storage      *service.StorageService
	auth         *service.AuthService
	user         *service.UserService
	class        *service.ClassService
	scoring      *service.ScoringService
	qa           *service.QAService
	material     *service.MaterialService
	announcement *service.AnnouncementService
	feed         *service.RedisFeed
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	class        *controller.ClassController
	leaderboard  *controller.LeaderboardController
	qa           *controller.QAController
	vote         *controller.VoteController
	material     *controller.MaterialController
	announcement *controller.AnnouncementController
	feed         *controller.FeedController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		class:        repository.NewClassRepository(db),
		membership:   repository.NewMembershipRepository(db),
		question:     repository.NewQuestionRepository(db),
		answer:       repository.NewAnswerRepository(db),
		reply:        repository.NewReplyRepository(db),
		material:     repository.NewMaterialRepository(db),
		announcement: repository.NewAnnouncementRepository(db),
		vote:         repository.NewVoteRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	// 没有 Redis 时事件静默丢弃
	var events service.EventPublisher = service.NopPublisher{}
	if rdb != nil {
		s.feed = service.NewRedisFeed(rdb)
		events = s.feed
	}

	s.policy = service.NewPolicy(cfg.QA)
	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, s.storage)
	s.class = service.NewClassService(repos.class, repos.membership, s.policy, events)
	s.scoring = service.NewScoringService(
		repos.vote,
		repos.membership,
		repos.user,
		service.NewAcceptStore(repos.question, repos.answer),
		s.policy,
		events,
		cfg.Scoring,
	)
	s.qa = service.NewQAService(repos.question, repos.answer, repos.reply, repos.membership, repos.vote, s.policy, events)
	s.material = service.NewMaterialService(repos.material, repos.membership, repos.vote, s.storage, rdb, s.policy, events, cfg)
	s.announcement = service.NewAnnouncementService(repos.announcement, repos.membership, repos.user, s.storage, s.policy, events)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	var feed controller.FeedSubscriber
	if s.feed != nil {
		feed = s.feed
	}
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		user:         controller.NewUserController(s.user),
		class:        controller.NewClassController(s.class),
		leaderboard:  controller.NewLeaderboardController(s.scoring),
		qa:           controller.NewQAController(s.qa, s.scoring),
		vote:         controller.NewVoteController(s.scoring),
		material:     controller.NewMaterialController(s.material),
		announcement: controller.NewAnnouncementController(s.announcement),
		feed:         controller.NewFeedController(s.class, feed),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateWindow())
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerReloadable 配置文件变化时热更新积分规则、问答规则、限流参数与日志级别
func (a *App) registerReloadable() {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.services.scoring.UpdateRules(cfg.Scoring)
		a.services.policy.UpdateQA(cfg.QA)
		a.limiter.Update(cfg.RateLimit.MaxRequests, cfg.RateWindow())
		if err := logger.SetLevel(cfg); err != nil {
			logger.Log.Warn("Ignoring invalid log level", zap.Error(err))
		}
		logger.Log.Info("Runtime rules updated",
			zap.Int("answer_upvote", cfg.Scoring.AnswerUpvote),
			zap.Int("accept_bonus", cfg.Scoring.AcceptBonus),
			zap.Int("rate_limit", cfg.RateLimit.MaxRequests))
	})
}

// Build 用已打开的连接组装路由与服务，rdb 可为 nil
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)
	app.registerReloadable()

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

// NewApp 初始化日志、数据库、Redis 与追踪后组装应用
func NewApp(cfg *config.Config) (*App, error) {
	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, migrate)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("initialize redis: %w", err)
	}

	app := Build(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("courseconnect", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing, continuing without it", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	return app, nil
}

// Run 启动 HTTP 服务，ctx 结束时优雅关闭
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	if a.Config.ConfigFile != "" {
		go func() {
			if err := configwatcher.WatchConfig(ctx, a.Config.ConfigFile, a.applyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.Close()
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	a.Close()
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Log.Info("Server exiting")
	return nil
}

// Close 释放限流器、追踪与连接
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
		cancel()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Log.Sync()
}
