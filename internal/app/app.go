package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"communilearn_backend/internal/config"
	"communilearn_backend/internal/controller"
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/service"
	"communilearn_backend/pkg/configwatcher"
	"communilearn_backend/pkg/database"
	"communilearn_backend/pkg/logger"
	"communilearn_backend/pkg/monitoring"
	"communilearn_backend/pkg/security"
	"communilearn_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	module       *repository.ModuleRepository
	quiz         *repository.QuizRepository
	announcement *repository.AnnouncementRepository
	attendance   *repository.AttendanceRepository
	comment      *repository.CommentRepository
	viewed       repository.ViewedStore
}

type services struct {
	storage      *service.StorageService
	enrollment   *service.EnrollmentService
	auth         *service.AuthService
	user         *service.UserService
	profile      *service.ProfileService
	module       *service.ModuleService
	quiz         *service.QuizService
	attempt      *service.AttemptService
	announcement *service.AnnouncementService
	attendance   *service.AttendanceService
	comment      *service.CommentService
	recent       *service.RecentService
}

type controllers struct {
	auth                 *controller.AuthController
	profile              *controller.ProfileController
	module               *controller.ModuleController
	quiz                 *controller.QuizController
	announcement         *controller.AnnouncementController
	attendance           *controller.AttendanceController
	moduleComments       *controller.CommentController
	announcementComments *controller.CommentController
	attendanceComments   *controller.CommentController
	recent               *controller.RecentController
	health               *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	// 未启用 redis 时已查看记录只保存在进程内
	var viewed repository.ViewedStore = repository.NewMemoryViewedStore()
	if rdb != nil {
		viewed = repository.NewRedisViewedStore(rdb)
	}
	return &repositories{
		user:         repository.NewUserRepository(db),
		module:       repository.NewModuleRepository(db),
		quiz:         repository.NewQuizRepository(db),
		announcement: repository.NewAnnouncementRepository(db),
		attendance:   repository.NewAttendanceRepository(db),
		comment:      repository.NewCommentRepository(db),
		viewed:       viewed,
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(a.ctx, cfg)
	s.enrollment = service.NewEnrollmentService(repos.module, repos.user)
	s.auth = service.NewAuthService(repos.user, s.enrollment, cfg)
	s.user = service.NewUserService(repos.user, repos.module, s.enrollment)
	s.profile = service.NewProfileService(repos.user, s.storage)
	s.module = service.NewModuleService(repos.module, s.enrollment, s.storage)
	s.quiz = service.NewQuizService(repos.quiz, repos.module, s.storage, cfg)
	s.attempt = service.NewAttemptService(repos.quiz, repos.module, repos.user, s.storage)
	s.announcement = service.NewAnnouncementService(repos.announcement, s.storage)
	s.attendance = service.NewAttendanceService(repos.attendance, repos.announcement, repos.user)
	s.comment = service.NewCommentService(repos.comment, repos.user, repos.module, repos.announcement, repos.attendance)
	s.recent = service.NewRecentService(repos.announcement, repos.module, repos.quiz, repos.user, repos.viewed)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:                 controller.NewAuthController(s.auth, s.user),
		profile:              controller.NewProfileController(s.profile, a.Config),
		module:               controller.NewModuleController(s.module, a.Config),
		quiz:                 controller.NewQuizController(s.quiz, s.attempt, a.Config),
		announcement:         controller.NewAnnouncementController(s.announcement, a.Config),
		attendance:           controller.NewAttendanceController(s.attendance),
		moduleComments:       controller.NewCommentController(s.comment, model.ModuleComments, "moduleId", "id"),
		announcementComments: controller.NewCommentController(s.comment, model.AnnouncementComments, "id", "cid"),
		attendanceComments:   controller.NewCommentController(s.comment, model.AttendanceComments, "id", "cid"),
		recent:               controller.NewRecentController(s.recent),
		health:               controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if a.tracer != nil {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 基于已打开的数据库组装应用，rdb 为 nil 时不使用 redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		ctx:    ctx,
		cancel: cancel,
	}

	cfg.SetMaxUploadMB(cfg.Storage.MaxUploadMB)
	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg)
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode || cfg.Server.Mode == gin.TestMode {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing, continuing without it", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	// 热加载只调整日志级别与上传上限，其余配置需要重启
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Log.Level)
	})
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		app.Config.SetMaxUploadMB(newCfg.Storage.MaxUploadMB)
	})

	return app
}

// NewApp 初始化日志、数据库与 redis 并组装应用
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			// redis 只用于已查看记录，不可用时退回内存实现
			logger.Log.Warn("Redis unavailable, falling back to in-memory viewed store", zap.Error(err))
			rdb = nil
		}
	}

	return New(cfg, db, rdb)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}

func (a *App) watchConfig() {
	err := configwatcher.WatchConfig(a.ctx, a.Config.FilePath(), func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config watcher stopped", zap.Error(err))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.watchConfig()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close()

	logger.Log.Info("Server exiting")
}

// Close 停止后台任务并释放连接
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
