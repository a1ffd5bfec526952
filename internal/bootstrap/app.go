package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	httpHandler "aura-board/internal/handler/http"
	wsHandler "aura-board/internal/handler/websocket"
	"aura-board/internal/hub"
	gormpersistence "aura-board/internal/infra/persistence/gorm"
	"aura-board/internal/infra/setup"
	redisstate "aura-board/internal/infra/state/redis"
	"aura-board/internal/service"
	"aura-board/internal/tasks"
	"aura-board/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds the running server components.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	Worker      *worker.WorkerServer
	Scheduler   *asynq.Scheduler
	Hub         *hub.Hub
	HttpServer  *http.Server

	hubCancel context.CancelFunc
	hubDone   chan struct{}
}

// NewApp connects the infrastructure and wires repositories, services,
// handlers and background workers.
func NewApp(cfg *Config) (*App, error) {
	log := NewLogger(cfg)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.Level)
	log.WithField("env", cfg.AppEnv).Info("Configuration loaded")

	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Redis and asynq clients initialized")

	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	participantRepo := gormpersistence.NewGormParticipantRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)

	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	roomService := service.NewRoomService(roomRepo)
	participantService := service.NewParticipantService(participantRepo, roomRepo, stateRepo, asynqClient)

	hubInstance := hub.NewHub(stateRepo)
	workerServer := worker.NewWorkerServer(redisClientOpt, roomRepo, hubInstance, log)

	scheduler := asynq.NewScheduler(redisClientOpt, &asynq.SchedulerOpts{
		Logger: log.WithField("component", "scheduler"),
	})
	schedule := "@every " + cfg.PresenceSweepInterval.String()
	entryID, err := scheduler.Register(schedule, tasks.NewRoomPresenceSweepTask(), asynq.Queue(tasks.QueueLow), asynq.MaxRetry(0))
	if err != nil {
		return nil, fmt.Errorf("failed to register presence sweep: %w", err)
	}
	log.Infof("Presence sweep registered with schedule '%s' (EntryID: %s)", schedule, entryID)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := NewRouter(cfg, log, stateRepo, Handlers{
		Auth:        httpHandler.NewAuthHandler(authService),
		Room:        httpHandler.NewRoomHandler(roomService),
		Participant: httpHandler.NewParticipantHandler(participantService),
		WebSocket:   wsHandler.NewWebSocketHandler(hubInstance, roomService, checkOrigin(cfg.CORSAllowedOrigin)),
	})

	return &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		AsynqClient: asynqClient,
		Worker:      workerServer,
		Scheduler:   scheduler,
		Hub:         hubInstance,
		HttpServer: &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// checkOrigin accepts websocket upgrades from the CORS origin, or any origin
// when it is "*". Requests without an Origin header (non-browser clients) pass.
func checkOrigin(allowed string) func(r *http.Request) bool {
	if allowed == "*" {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

// Start launches the hub, the worker, the scheduler and the HTTP server.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.hubCancel = cancel
	a.hubDone = make(chan struct{})
	go func() {
		defer close(a.hubDone)
		if err := a.Hub.Run(ctx); err != nil {
			a.Log.WithError(err).Error("Hub stopped with error")
		}
	}()

	if err := a.Worker.Start(); err != nil {
		return err
	}
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	return nil
}

// Shutdown stops every component, HTTP first so no new work arrives.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.hubCancel != nil {
		a.hubCancel()
		<-a.hubDone
	}
	a.Scheduler.Shutdown()
	a.Worker.Shutdown()

	if err := a.AsynqClient.Close(); err != nil {
		a.Log.Errorf("Error closing Asynq client: %v", err)
	}
	if err := a.RedisClient.Close(); err != nil {
		a.Log.Errorf("Error closing Redis connection: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Errorf("Error closing database connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}
